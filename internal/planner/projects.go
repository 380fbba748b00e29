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

type ProjectInput struct {
	Title              string
	Description        string
	Start, End         calendar.Date
	AssignedEmployeeID int64

	// Tasks are created with the project. A zero Order defaults to the
	// task's 1-based position in this slice.
	Tasks []TaskInput
}

// ProjectPatch is a partial project edit. A zero AssignedEmployeeID unassigns.
type ProjectPatch struct {
	Title              *string
	Description        *string
	Start              *calendar.Date
	End                *calendar.Date
	AssignedEmployeeID *int64
}

func validateProjectWindow(start, end calendar.Date) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: project %s < %s", schedule.ErrEndBeforeStart, end, start)
	}
	return nil
}

func (s *Service) ListProjects(ctx context.Context) ([]storage.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) GetProject(ctx context.Context, id int64) (storage.Project, error) {
	return s.store.GetProject(ctx, id)
}

// CreateProject stores the project and its nested tasks in one transaction.
// Every task is validated before anything is written.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (storage.Project, []schedule.Task, error) {
	p := storage.Project{
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Start:              in.Start,
		End:                in.End,
		AssignedEmployeeID: in.AssignedEmployeeID,
	}
	if p.Title == "" {
		return storage.Project{}, nil, fmt.Errorf("%w: title is required", schedule.ErrInvalidInput)
	}
	if err := validateProjectWindow(p.Start, p.End); err != nil {
		return storage.Project{}, nil, err
	}

	tasks := make([]schedule.Task, 0, len(in.Tasks))
	for i, ti := range in.Tasks {
		if ti.Order == 0 {
			ti.Order = i + 1
		}
		t, err := buildTask(tasks, ti)
		if err != nil {
			return storage.Project{}, nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		tasks = append(tasks, t)
	}

	err := s.store.CreateProject(ctx, &p, func(tx *storage.Tx) error {
		for i := range tasks {
			if err := tx.InsertTask(ctx, &tasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.Project{}, nil, err
	}
	schedule.SortByOrder(tasks)
	s.log.Info("project created", logProject(p.ID), logCount(len(tasks)))
	return p, tasks, nil
}

// UpdateProject edits project fields. Task dates are not touched; use
// AutoSchedule to re-plan after moving the project start.
func (s *Service) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (storage.Project, error) {
	var out storage.Project
	err := s.store.InProject(ctx, id, func(tx *storage.Tx) error {
		p, err := tx.Project(ctx)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			if p.Title = strings.TrimSpace(*patch.Title); p.Title == "" {
				return fmt.Errorf("%w: title is required", schedule.ErrInvalidInput)
			}
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Start != nil {
			p.Start = *patch.Start
		}
		if patch.End != nil {
			p.End = *patch.End
		}
		if patch.AssignedEmployeeID != nil {
			p.AssignedEmployeeID = *patch.AssignedEmployeeID
		}
		if err := validateProjectWindow(p.Start, p.End); err != nil {
			return err
		}
		if err := tx.SaveProject(ctx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.log.Info("project deleted", logProject(id))
	return nil
}

// AutoSchedule lays the project's tasks end to end from its start date.
// A non-zero start replaces the stored project start first.
func (s *Service) AutoSchedule(ctx context.Context, projectID int64, start calendar.Date) (Result, error) {
	var res Result
	err := s.store.InProject(ctx, projectID, func(tx *storage.Tx) error {
		p, err := tx.Project(ctx)
		if err != nil {
			return err
		}
		if !start.IsZero() && !start.Equal(p.Start) {
			p.Start = start
			if err := tx.SaveProject(ctx, &p); err != nil {
				return err
			}
		}
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		updates, err := schedule.AutoSchedule(p.Start, tasks)
		if err != nil {
			return err
		}
		changed := onlyChanged(updates)
		if err := tx.ApplyUpdates(ctx, changed); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, storage.AuditEntry{
			Action:   storage.AuditAutoSchedule,
			Touched:  len(changed),
			MetaJSON: auditMeta(map[string]any{"start": p.Start.String(), "tasks": len(tasks)}),
		}); err != nil {
			return err
		}
		res = Result{Project: p, Tasks: schedule.Apply(tasks, updates), Touched: len(changed)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.log.Info("project auto-scheduled",
		logProject(projectID),
		logStart(res.Project.Start),
		logCount(res.Touched),
	)
	s.publish(eventbus.ProjectAutoScheduled, res)
	return res, nil
}

// ListAudit returns the project's newest schedule audit entries.
func (s *Service) ListAudit(ctx context.Context, projectID int64, limit int) ([]storage.AuditEntry, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, projectID, limit)
}
