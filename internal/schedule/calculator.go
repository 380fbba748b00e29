package schedule

import (
	"fmt"
	"sort"

	"taskplan/internal/calendar"
)

// DeriveEndDate is the single source of truth for the end date implied by a
// start date and a business-day duration. It returns the zero Date when start
// is not set.
func DeriveEndDate(start calendar.Date, durationDays int) (calendar.Date, error) {
	if durationDays < 1 {
		return calendar.Date{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, durationDays)
	}
	if start.IsZero() {
		return calendar.Date{}, nil
	}
	return calendar.AddBusinessDays(start, durationDays), nil
}

// SortByOrder sorts tasks ascending by sequence order in place.
func SortByOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
}

// ValidateOrdering checks that tasks are ascending by a positive, unique
// sequence order. Every engine entry point assumes this holds.
func ValidateOrdering(tasks []Task) error {
	prev := 0
	for i, t := range tasks {
		if t.Order < 1 {
			return fmt.Errorf("%w: task %d has order %d", ErrInvalidOrder, t.ID, t.Order)
		}
		if i > 0 && t.Order == prev {
			return fmt.Errorf("%w: order %d", ErrDuplicateOrder, t.Order)
		}
		if i > 0 && t.Order < prev {
			return fmt.Errorf("%w: tasks not ascending at order %d", ErrInvalidOrder, t.Order)
		}
		prev = t.Order
	}
	return nil
}

// NextOrder returns the order a newly appended task should take.
func NextOrder(tasks []Task) int {
	hi := 0
	for _, t := range tasks {
		if t.Order > hi {
			hi = t.Order
		}
	}
	return hi + 1
}
