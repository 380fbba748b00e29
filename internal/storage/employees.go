package storage

import (
	"context"
	"time"
)

const employeeCols = `id, name, email, department, created_at`

func scanEmployee(r rowScanner) (Employee, error) {
	var (
		e       Employee
		dept    string
		created string
	)
	if err := r.Scan(&e.ID, &e.Name, &e.Email, &dept, &created); err != nil {
		return Employee{}, err
	}
	e.Department = Department(dept)
	e.CreatedAt = parseTime(created)
	return e, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeCols+` FROM employees ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = ?`, id))
	return e, mapErr(err)
}

// CreateEmployee inserts e and fills in its ID and CreatedAt.
func (s *Store) CreateEmployee(ctx context.Context, e *Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO employees(name, email, department, created_at) VALUES(?,?,?,?)`,
		e.Name, e.Email, string(e.Department), formatTime(e.CreatedAt),
	)
	if err != nil {
		return mapErr(err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateEmployee(ctx context.Context, e Employee) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET name = ?, email = ?, department = ? WHERE id = ?`,
		e.Name, e.Email, string(e.Department), e.ID,
	)
	return affected(res, err)
}

// DeleteEmployee removes the employee; projects assigned to it become unassigned.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	return affected(res, err)
}
