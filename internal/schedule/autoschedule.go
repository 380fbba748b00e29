package schedule

import (
	"fmt"

	"taskplan/internal/calendar"
)

// AutoSchedule lays tasks end to end starting at projectStart.
//
// The first task starts on projectStart, every later task on the day after
// the previous end date, and any start that lands on a weekend rolls forward
// to Monday. End dates are derived from each task's own duration. A task
// without a duration keeps its start, loses its end date, and the next task
// starts the day after it.
//
// One update is returned per task, in order. On error nothing is returned.
func AutoSchedule(projectStart calendar.Date, tasks []Task) ([]Update, error) {
	if projectStart.IsZero() {
		return nil, ErrMissingProjectStartDate
	}
	for _, t := range tasks {
		if t.DurationDays < 0 {
			return nil, fmt.Errorf("%w: task %d has %d", ErrInvalidDuration, t.ID, t.DurationDays)
		}
	}

	out := make([]Update, 0, len(tasks))
	candidate := projectStart
	for _, t := range tasks {
		start := calendar.RollForward(candidate)
		var end calendar.Date
		if t.DurationDays > 0 {
			d, err := DeriveEndDate(start, t.DurationDays)
			if err != nil {
				return nil, err
			}
			end = d
		}
		out = append(out, Update{
			TaskID:    t.ID,
			Order:     t.Order,
			PrevStart: t.Start,
			PrevEnd:   t.End,
			Start:     start,
			End:       end,
		})
		if end.IsZero() {
			candidate = start.AddDays(1)
		} else {
			candidate = end.AddDays(1)
		}
	}
	return out, nil
}
