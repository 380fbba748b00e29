package schedule

import (
	"fmt"
	"strings"
	"time"

	"taskplan/internal/calendar"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// ParseStatus normalizes s. An empty string yields StatusPending.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StatusPending, nil
	case StatusPending, StatusInProgress, StatusDone, StatusBlocked:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// Task is the unit the engine schedules.
//
// DurationDays counts business days after Start; 0 means no duration is set.
// A zero Start or End means the date is not set.
type Task struct {
	ID          int64
	ProjectID   int64
	Name        string
	Description string
	Order       int
	Status      Status

	Start        calendar.Date
	End          calendar.Date
	DurationDays int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompletionSpan is End - Start in calendar days. ok is false unless both are set.
func (t Task) CompletionSpan() (days int, ok bool) {
	if t.Start.IsZero() || t.End.IsZero() {
		return 0, false
	}
	return t.End.Sub(t.Start), true
}

// Update is one computed change to a task's schedule window.
// SkipDerivation marks writes whose End must be stored verbatim.
type Update struct {
	TaskID int64
	Order  int

	PrevStart, PrevEnd calendar.Date
	Start, End         calendar.Date

	SkipDerivation bool
}

// Changed reports whether the update moves either date.
func (u Update) Changed() bool {
	return !u.Start.Equal(u.PrevStart) || !u.End.Equal(u.PrevEnd)
}

// Apply returns a copy of tasks with updates merged in by task ID.
func Apply(tasks []Task, updates []Update) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	if len(updates) == 0 {
		return out
	}
	idx := make(map[int64]int, len(out))
	for i := range out {
		idx[out[i].ID] = i
	}
	for _, u := range updates {
		i, ok := idx[u.TaskID]
		if !ok {
			continue
		}
		out[i].Start = u.Start
		out[i].End = u.End
	}
	return out
}
