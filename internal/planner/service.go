// Package planner is the application service around the scheduling engine.
// It loads a project's tasks inside one storage transaction, asks the engine
// for the full set of changes, writes them, records an audit entry and, after
// commit, publishes an event.
package planner

import (
	"context"
	"errors"
	"fmt"

	"taskplan/internal/eventbus"
	"taskplan/internal/schedule"
	"taskplan/internal/storage"
	logx "taskplan/pkg/logx"
)

type Service struct {
	store *storage.Store
	bus   eventbus.Bus
	log   logx.Logger
}

// New returns a Service. bus may be nil.
func New(store *storage.Store, bus eventbus.Bus, log logx.Logger) *Service {
	return &Service{store: store, bus: bus, log: log.With(logx.String("comp", "planner"))}
}

// Result describes a committed schedule change.
type Result struct {
	Project storage.Project
	// Task is the edited or shifted task; zero for project-wide operations.
	Task schedule.Task
	// Tasks is the project's full task list after the change.
	Tasks []schedule.Task
	// DeltaDays is the calendar-day move carried by the cascade or shift.
	DeltaDays int
	// Touched counts tasks whose dates were rewritten besides an edited task.
	Touched int
}

func loadTasks(ctx context.Context, tx *storage.Tx) ([]schedule.Task, error) {
	tasks, err := tx.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if err := schedule.ValidateOrdering(tasks); err != nil {
		return nil, fmt.Errorf("stored tasks of project %d: %w", tx.ProjectID(), err)
	}
	return tasks, nil
}

func (s *Service) publish(typ string, res Result) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{
		Type: typ,
		Data: eventbus.ScheduleChange{
			ProjectID:    res.Project.ID,
			ProjectTitle: res.Project.Title,
			TaskID:       res.Task.ID,
			TaskName:     res.Task.Name,
			DeltaDays:    res.DeltaDays,
			Touched:      res.Touched,
		},
	})
}

// projectOfTask resolves the project a task belongs to.
func (s *Service) projectOfTask(ctx context.Context, taskID int64) (int64, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return t.ProjectID, nil
}

// notFound maps a task that vanished between lookup and lock to storage.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, schedule.ErrTaskNotInList) {
		return storage.ErrNotFound
	}
	return err
}

func onlyChanged(updates []schedule.Update) []schedule.Update {
	out := make([]schedule.Update, 0, len(updates))
	for _, u := range updates {
		if u.Changed() {
			out = append(out, u)
		}
	}
	return out
}
