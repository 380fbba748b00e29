package schedule

import (
	"fmt"
	"strings"

	"taskplan/internal/calendar"
)

// Change is a partial task edit. Nil fields are left alone; a pointer to the
// zero Date clears that date.
type Change struct {
	Name         *string
	Description  *string
	Status       *Status
	Order        *int
	Start        *calendar.Date
	End          *calendar.Date
	DurationDays *int
}

// TouchesSchedule reports whether the change can move the task's window.
func (c Change) TouchesSchedule() bool {
	return c.Start != nil || c.End != nil || c.DurationDays != nil
}

// EditPlan is the full effect of one task edit, computed before any write.
type EditPlan struct {
	Before Task
	After  Task

	// Derived is set when After.End was recomputed from Start and DurationDays.
	Derived bool
	// Cascade moves every later task by the net change of the end date.
	Cascade []Update
}

// Delta is the net move of the edited task's end date in calendar days.
func (p EditPlan) Delta() int {
	if p.Before.End.IsZero() || p.After.End.IsZero() {
		return 0
	}
	return p.After.End.Sub(p.Before.End)
}

// PlanEdit applies c to the task identified by taskID and computes the
// cascade it triggers.
//
// An end date that differs from the stored one is kept as given. Otherwise a
// changed start date or duration re-derives the end date, also when the change
// repeats the stored end. Either way the old end date is the one the
// task had before the edit, and a net move of the end date shifts every task
// ordered after it.
func PlanEdit(tasks []Task, taskID int64, c Change) (EditPlan, error) {
	i := indexOf(tasks, taskID)
	if i < 0 {
		return EditPlan{}, ErrTaskNotInList
	}
	before := tasks[i]
	others := make([]Task, 0, len(tasks)-1)
	others = append(others, tasks[:i]...)
	others = append(others, tasks[i+1:]...)

	if err := validateChange(others, c); err != nil {
		return EditPlan{}, err
	}

	after := before
	if c.Name != nil {
		after.Name = strings.TrimSpace(*c.Name)
	}
	if c.Description != nil {
		after.Description = *c.Description
	}
	if c.Status != nil {
		after.Status, _ = ParseStatus(string(*c.Status))
	}
	if c.Order != nil {
		after.Order = *c.Order
	}
	if c.DurationDays != nil {
		after.DurationDays = *c.DurationDays
	}
	if c.Start != nil {
		after.Start = *c.Start
	}

	plan := EditPlan{Before: before}
	switch {
	case c.End != nil && !c.End.Equal(before.End):
		after.End = *c.End
	case rederive(before, after):
		end, err := DeriveEndDate(after.Start, after.DurationDays)
		if err != nil {
			return EditPlan{}, err
		}
		after.End = end
		plan.Derived = true
	}

	if (c.Start != nil || c.End != nil) && !after.Start.IsZero() && !after.End.IsZero() && after.End.Before(after.Start) {
		return EditPlan{}, fmt.Errorf("%w: %s < %s", ErrEndBeforeStart, after.End, after.Start)
	}

	plan.After = after
	plan.Cascade = ApplyShift(others, after.Order, before.End, after.End)
	return plan, nil
}

func rederive(before, after Task) bool {
	if after.Start.IsZero() || after.DurationDays < 1 {
		return false
	}
	return !before.Start.Equal(after.Start) || before.DurationDays != after.DurationDays
}

func validateChange(others []Task, c Change) error {
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if c.DurationDays != nil && *c.DurationDays < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, *c.DurationDays)
	}
	if c.Order != nil {
		if *c.Order < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidOrder, *c.Order)
		}
		for _, t := range others {
			if t.Order == *c.Order {
				return fmt.Errorf("%w: order %d is taken by task %d", ErrDuplicateOrder, *c.Order, t.ID)
			}
		}
	}
	if c.Status != nil {
		if _, err := ParseStatus(string(*c.Status)); err != nil {
			return err
		}
	}
	return nil
}
