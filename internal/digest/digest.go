// Package digest builds and posts the daily schedule digest: tasks starting
// today, tasks ending today and overdue tasks across every project.
package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize/english"

	"taskplan/internal/calendar"
	"taskplan/internal/schedule"
	"taskplan/internal/storage"
)

type Item struct {
	ProjectID    int64
	ProjectTitle string
	TaskID       int64
	TaskName     string
	Start, End   calendar.Date
	// DaysOverdue is set for overdue items only.
	DaysOverdue int
}

type Digest struct {
	Date          calendar.Date
	StartingToday []Item
	EndingToday   []Item
	Overdue       []Item
}

func (d Digest) Empty() bool {
	return len(d.StartingToday) == 0 && len(d.EndingToday) == 0 && len(d.Overdue) == 0
}

// Build classifies tasks relative to today. A task is overdue when its end
// date has passed and it is not done. Tasks of unknown projects are skipped.
func Build(today calendar.Date, projects []storage.Project, tasks []schedule.Task) Digest {
	titles := make(map[int64]string, len(projects))
	for _, p := range projects {
		titles[p.ID] = p.Title
	}

	d := Digest{Date: today}
	for _, t := range tasks {
		title, ok := titles[t.ProjectID]
		if !ok {
			continue
		}
		it := Item{
			ProjectID:    t.ProjectID,
			ProjectTitle: title,
			TaskID:       t.ID,
			TaskName:     t.Name,
			Start:        t.Start,
			End:          t.End,
		}
		if t.Start.Equal(today) {
			d.StartingToday = append(d.StartingToday, it)
		}
		if t.End.Equal(today) {
			d.EndingToday = append(d.EndingToday, it)
		}
		if !t.End.IsZero() && t.End.Before(today) && t.Status != schedule.StatusDone {
			it.DaysOverdue = today.Sub(t.End)
			d.Overdue = append(d.Overdue, it)
		}
	}

	byProject := func(items []Item) {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].ProjectTitle != items[j].ProjectTitle {
				return items[i].ProjectTitle < items[j].ProjectTitle
			}
			return items[i].TaskID < items[j].TaskID
		})
	}
	byProject(d.StartingToday)
	byProject(d.EndingToday)
	sort.SliceStable(d.Overdue, func(i, j int) bool {
		if d.Overdue[i].DaysOverdue != d.Overdue[j].DaysOverdue {
			return d.Overdue[i].DaysOverdue > d.Overdue[j].DaysOverdue
		}
		return d.Overdue[i].TaskID < d.Overdue[j].TaskID
	})
	return d
}

// Render formats the digest as plain text.
func (d Digest) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule digest for %s (%s)\n", d.Date, d.Date.Weekday())
	if d.Empty() {
		b.WriteString("Nothing starts, ends or is overdue today.\n")
		return b.String()
	}
	section := func(title string, items []Item, line func(Item) string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s (%s):\n", title, english.Plural(len(items), "task", ""))
		for _, it := range items {
			fmt.Fprintf(&b, "- %s / %s%s\n", it.ProjectTitle, it.TaskName, line(it))
		}
	}
	section("Starting today", d.StartingToday, func(it Item) string {
		if it.End.IsZero() {
			return ""
		}
		return ", due " + it.End.String()
	})
	section("Due today", d.EndingToday, func(Item) string { return "" })
	section("Overdue", d.Overdue, func(it Item) string {
		return ", " + english.Plural(it.DaysOverdue, "day", "") + " late"
	})
	return b.String()
}
