package notifier

import (
	"fmt"

	"github.com/dustin/go-humanize/english"

	"taskplan/internal/eventbus"
)

// FormatEvent renders a schedule event as a one-line message.
// ok is false for events the notifier does not report.
func FormatEvent(e eventbus.Event) (text string, ok bool) {
	c, isChange := e.Data.(eventbus.ScheduleChange)
	if !isChange {
		return "", false
	}
	project := c.ProjectTitle
	if project == "" {
		project = fmt.Sprintf("project #%d", c.ProjectID)
	}

	switch e.Type {
	case eventbus.TaskCascaded:
		return fmt.Sprintf("%s: %q moved its end date by %s; %s shifted to match.",
			project, c.TaskName, signedDays(c.DeltaDays), english.Plural(c.Touched, "later task", "")), true
	case eventbus.TaskShifted:
		return fmt.Sprintf("%s: %s shifted by %s starting at %q.",
			project, english.Plural(c.Touched, "task", ""), signedDays(c.DeltaDays), c.TaskName), true
	case eventbus.ProjectAutoScheduled:
		if c.Touched == 0 {
			return fmt.Sprintf("%s: auto-schedule found nothing to change.", project), true
		}
		return fmt.Sprintf("%s: auto-scheduled, %s rescheduled.", project, english.Plural(c.Touched, "task", "")), true
	default:
		return "", false
	}
}

func signedDays(n int) string {
	sign := "+"
	if n < 0 {
		sign, n = "-", -n
	}
	return sign + english.Plural(n, "day", "")
}
