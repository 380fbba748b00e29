package schedule

import "taskplan/internal/calendar"

// ApplyShift computes the cascade caused by a task's end date moving from
// oldEnd to newEnd. Every task ordered strictly after changedOrder is moved by
// the same number of calendar days; durations are not re-derived, so each
// downstream window keeps its exact span.
//
// tasks must be sorted ascending by order and is not modified. The result is
// nil when either end date is unset or the delta is zero.
func ApplyShift(tasks []Task, changedOrder int, oldEnd, newEnd calendar.Date) []Update {
	if oldEnd.IsZero() || newEnd.IsZero() {
		return nil
	}
	delta := newEnd.Sub(oldEnd)
	if delta == 0 {
		return nil
	}
	var out []Update
	for _, t := range tasks {
		if t.Order <= changedOrder {
			continue
		}
		out = append(out, shiftTask(t, delta))
	}
	return out
}

// Shift moves the task identified by taskID and every later task by days
// calendar days.
func Shift(tasks []Task, taskID int64, days int) ([]Update, error) {
	if days == 0 {
		return nil, ErrMissingShiftAmount
	}
	i := indexOf(tasks, taskID)
	if i < 0 {
		return nil, ErrTaskNotInList
	}
	order := tasks[i].Order
	out := make([]Update, 0, len(tasks)-i)
	for _, t := range tasks {
		if t.ID == taskID || t.Order > order {
			out = append(out, shiftTask(t, days))
		}
	}
	return out, nil
}

// shiftTask moves only the dates t actually has.
func shiftTask(t Task, delta int) Update {
	return Update{
		TaskID:         t.ID,
		Order:          t.Order,
		PrevStart:      t.Start,
		PrevEnd:        t.End,
		Start:          t.Start.AddDays(delta),
		End:            t.End.AddDays(delta),
		SkipDerivation: true,
	}
}

// Delta returns the calendar-day shift carried by a cascade, or 0.
func Delta(updates []Update) int {
	for _, u := range updates {
		switch {
		case !u.End.IsZero() && !u.PrevEnd.IsZero():
			return u.End.Sub(u.PrevEnd)
		case !u.Start.IsZero() && !u.PrevStart.IsZero():
			return u.Start.Sub(u.PrevStart)
		}
	}
	return 0
}

func indexOf(tasks []Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
