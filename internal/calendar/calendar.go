// Package calendar implements business-day arithmetic over a fixed
// Saturday/Sunday weekend. There is no holiday calendar.
package calendar

import "time"

// IsBusinessDay reports whether d falls Monday through Friday.
func IsBusinessDay(d Date) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// AddBusinessDays walks forward from d one calendar day at a time and returns
// the day on which the n-th business day is counted. d itself is never
// counted, so n == 0 returns d. Negative n walks backward.
func AddBusinessDays(d Date, n int) Date {
	if n < 0 {
		return SubtractBusinessDays(d, -n)
	}
	return step(d, n, 1)
}

// SubtractBusinessDays is AddBusinessDays walking backward.
func SubtractBusinessDays(d Date, n int) Date {
	if n < 0 {
		return AddBusinessDays(d, -n)
	}
	return step(d, n, -1)
}

func step(d Date, n, dir int) Date {
	if d.IsZero() {
		return d
	}
	for n > 0 {
		d = d.AddDays(dir)
		if IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// CountBusinessDays counts business days in the half-open range (from, to].
// It returns 0 when to is not after from or either date is unset.
func CountBusinessDays(from, to Date) int {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return 0
	}
	days := to.Sub(from)
	// Whole weeks contribute five business days each regardless of phase.
	n := (days / 7) * 5
	for d := from.AddDays((days / 7) * 7); d.Before(to); {
		d = d.AddDays(1)
		if IsBusinessDay(d) {
			n++
		}
	}
	return n
}

// RollForward returns d when it is a business day, otherwise the following Monday.
func RollForward(d Date) Date {
	if d.IsZero() {
		return d
	}
	for !IsBusinessDay(d) {
		d = d.AddDays(1)
	}
	return d
}
