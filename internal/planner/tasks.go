package planner

import (
	"context"
	"fmt"
	"strings"

	"taskplan/internal/calendar"
	"taskplan/internal/eventbus"
	"taskplan/internal/schedule"
	"taskplan/internal/storage"
)

// TaskInput creates a task. A nil DurationDays leaves the duration unset; an
// explicit End is stored as given instead of being derived.
type TaskInput struct {
	Name         string
	Description  string
	Order        int // 0 appends after the last task
	Status       string
	Start, End   calendar.Date
	DurationDays *int
}

// buildTask validates in against existing and returns the task to insert.
func buildTask(existing []schedule.Task, in TaskInput) (schedule.Task, error) {
	t := schedule.Task{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Order:       in.Order,
		Start:       in.Start,
		End:         in.End,
	}
	if t.Name == "" {
		return schedule.Task{}, fmt.Errorf("%w: name is required", schedule.ErrInvalidInput)
	}
	if in.DurationDays != nil {
		if *in.DurationDays < 1 {
			return schedule.Task{}, fmt.Errorf("%w: got %d", schedule.ErrInvalidDuration, *in.DurationDays)
		}
		t.DurationDays = *in.DurationDays
	}
	if t.Order == 0 {
		t.Order = schedule.NextOrder(existing)
	}
	if t.Order < 1 {
		return schedule.Task{}, fmt.Errorf("%w: got %d", schedule.ErrInvalidOrder, t.Order)
	}
	for _, o := range existing {
		if o.Order == t.Order {
			return schedule.Task{}, fmt.Errorf("%w: order %d", schedule.ErrDuplicateOrder, t.Order)
		}
	}
	var err error
	if t.Status, err = schedule.ParseStatus(in.Status); err != nil {
		return schedule.Task{}, err
	}

	// Derivation runs only when the caller did not pin the end date.
	if t.End.IsZero() && t.DurationDays > 0 {
		if t.End, err = schedule.DeriveEndDate(t.Start, t.DurationDays); err != nil {
			return schedule.Task{}, err
		}
	}
	if !t.Start.IsZero() && !t.End.IsZero() && t.End.Before(t.Start) {
		return schedule.Task{}, fmt.Errorf("%w: %s < %s", schedule.ErrEndBeforeStart, t.End, t.Start)
	}
	return t, nil
}

// ListTasks returns one project's tasks by order, or all tasks when projectID is 0.
func (s *Service) ListTasks(ctx context.Context, projectID int64) ([]schedule.Task, error) {
	if projectID != 0 {
		if _, err := s.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	return s.store.ListTasks(ctx, projectID)
}

func (s *Service) GetTask(ctx context.Context, id int64) (schedule.Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) CreateTask(ctx context.Context, projectID int64, in TaskInput) (schedule.Task, error) {
	var out schedule.Task
	err := s.store.InProject(ctx, projectID, func(tx *storage.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		t, err := buildTask(tasks, in)
		if err != nil {
			return err
		}
		if err := tx.InsertTask(ctx, &t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return schedule.Task{}, err
	}
	s.log.Debug("task created", logProject(projectID), logTask(out.ID))
	return out, nil
}

// UpdateTask applies a partial edit. When the task's end date moves, every
// later task in the project is shifted by the same number of days in the
// same transaction.
func (s *Service) UpdateTask(ctx context.Context, id int64, c schedule.Change) (Result, error) {
	projectID, err := s.projectOfTask(ctx, id)
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = s.store.InProject(ctx, projectID, func(tx *storage.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		plan, err := schedule.PlanEdit(tasks, id, c)
		if err != nil {
			return notFound(err)
		}
		after := plan.After
		cascade := onlyChanged(plan.Cascade)
		if err := tx.SaveTask(ctx, &after); err != nil {
			return err
		}
		if err := tx.ApplyUpdates(ctx, cascade); err != nil {
			return err
		}
		if c.TouchesSchedule() {
			err := tx.AppendAudit(ctx, storage.AuditEntry{
				TaskID:    id,
				Action:    storage.AuditEdit,
				DeltaDays: plan.Delta(),
				Touched:   len(cascade),
				MetaJSON: auditMeta(map[string]any{
					"old_start": plan.Before.Start.String(),
					"old_end":   plan.Before.End.String(),
					"new_start": after.Start.String(),
					"new_end":   after.End.String(),
					"derived":   plan.Derived,
				}),
			})
			if err != nil {
				return err
			}
		}
		p, err := tx.Project(ctx)
		if err != nil {
			return err
		}
		updated := schedule.Apply(tasks, cascade)
		for i := range updated {
			if updated[i].ID == after.ID {
				updated[i] = after
			}
		}
		schedule.SortByOrder(updated)
		res = Result{Project: p, Task: after, Tasks: updated, DeltaDays: plan.Delta(), Touched: len(cascade)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if c.TouchesSchedule() {
		s.log.Info("task schedule edited",
			logProject(projectID),
			logTask(id),
			logDelta(res.DeltaDays),
			logCount(res.Touched),
		)
	}
	if res.Touched > 0 {
		s.publish(eventbus.TaskCascaded, res)
	}
	return res, nil
}

// ShiftTask moves the task and every later task by days calendar days.
func (s *Service) ShiftTask(ctx context.Context, id int64, days int) (Result, error) {
	if days == 0 {
		return Result{}, schedule.ErrMissingShiftAmount
	}
	projectID, err := s.projectOfTask(ctx, id)
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = s.store.InProject(ctx, projectID, func(tx *storage.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		updates, err := schedule.Shift(tasks, id, days)
		if err != nil {
			return notFound(err)
		}
		changed := onlyChanged(updates)
		if err := tx.ApplyUpdates(ctx, changed); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, storage.AuditEntry{
			TaskID:    id,
			Action:    storage.AuditShift,
			DeltaDays: days,
			Touched:   len(changed),
			MetaJSON:  auditMeta(map[string]any{"days": days}),
		}); err != nil {
			return err
		}
		p, err := tx.Project(ctx)
		if err != nil {
			return err
		}
		updated := schedule.Apply(tasks, updates)
		res = Result{Project: p, Tasks: updated, DeltaDays: days, Touched: len(changed)}
		for _, t := range updated {
			if t.ID == id {
				res.Task = t
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.log.Info("tasks shifted",
		logProject(projectID),
		logTask(id),
		logDelta(days),
		logCount(res.Touched),
	)
	s.publish(eventbus.TaskShifted, res)
	return res, nil
}

// DeleteTask removes a task. Later tasks keep their orders and dates.
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	projectID, err := s.projectOfTask(ctx, id)
	if err != nil {
		return err
	}
	return s.store.InProject(ctx, projectID, func(tx *storage.Tx) error {
		return tx.DeleteTask(ctx, id)
	})
}
