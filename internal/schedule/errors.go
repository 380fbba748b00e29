package schedule

import "errors"

var (
	ErrInvalidDuration         = errors.New("duration must be at least one business day")
	ErrMissingProjectStartDate = errors.New("project start date is required")
	ErrMissingShiftAmount      = errors.New("shift requires a nonzero number of days")

	ErrInvalidOrder   = errors.New("sequence order must be a positive integer")
	ErrDuplicateOrder = errors.New("sequence order already used in this project")
	ErrEndBeforeStart = errors.New("end date is before start date")
	ErrTaskNotInList  = errors.New("task is not part of the project task list")
	ErrInvalidInput   = errors.New("invalid input")
)

// Kind is a stable, machine readable error category for API responses.
type Kind string

const (
	KindInvalidDuration         Kind = "invalid_duration"
	KindMissingProjectStartDate Kind = "missing_project_start_date"
	KindMissingShiftAmount      Kind = "missing_shift_amount"
	KindInvalidOrder            Kind = "invalid_order"
	KindDuplicateOrder          Kind = "duplicate_order"
	KindEndBeforeStart          Kind = "end_before_start"
	KindInvalidInput            Kind = "invalid_input"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidDuration, KindInvalidDuration},
	{ErrMissingProjectStartDate, KindMissingProjectStartDate},
	{ErrMissingShiftAmount, KindMissingShiftAmount},
	{ErrInvalidOrder, KindInvalidOrder},
	{ErrDuplicateOrder, KindDuplicateOrder},
	{ErrEndBeforeStart, KindEndBeforeStart},
	{ErrTaskNotInList, KindInvalidInput},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf classifies err. ok is false for errors that are not validation
// failures raised by this package.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind, true
		}
	}
	return "", false
}
