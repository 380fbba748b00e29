package planner

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"taskplan/internal/schedule"
	"taskplan/internal/storage"
)

type EmployeeInput struct {
	Name       string
	Email      string
	Department string // empty means "other"
}

type EmployeePatch struct {
	Name       *string
	Email      *string
	Department *string
}

func ParseDepartment(s string) (storage.Department, error) {
	d := storage.Department(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return storage.DeptOther, nil
	}
	for _, known := range storage.Departments {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: unknown department %q", schedule.ErrInvalidInput, s)
}

func normalizeEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: email is required", schedule.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("%w: invalid email %q", schedule.ErrInvalidInput, raw)
	}
	return s, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]storage.Employee, error) {
	return s.store.ListEmployees(ctx)
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (storage.Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (storage.Employee, error) {
	e := storage.Employee{Name: strings.TrimSpace(in.Name)}
	if e.Name == "" {
		return storage.Employee{}, fmt.Errorf("%w: name is required", schedule.ErrInvalidInput)
	}
	var err error
	if e.Email, err = normalizeEmail(in.Email); err != nil {
		return storage.Employee{}, err
	}
	if e.Department, err = ParseDepartment(in.Department); err != nil {
		return storage.Employee{}, err
	}
	if err := s.store.CreateEmployee(ctx, &e); err != nil {
		return storage.Employee{}, err
	}
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id int64, p EmployeePatch) (storage.Employee, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return storage.Employee{}, err
	}
	if p.Name != nil {
		if e.Name = strings.TrimSpace(*p.Name); e.Name == "" {
			return storage.Employee{}, fmt.Errorf("%w: name is required", schedule.ErrInvalidInput)
		}
	}
	if p.Email != nil {
		if e.Email, err = normalizeEmail(*p.Email); err != nil {
			return storage.Employee{}, err
		}
	}
	if p.Department != nil {
		if e.Department, err = ParseDepartment(*p.Department); err != nil {
			return storage.Employee{}, err
		}
	}
	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return storage.Employee{}, err
	}
	return e, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	return s.store.DeleteEmployee(ctx, id)
}
