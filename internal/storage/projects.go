package storage

import (
	"context"
	"database/sql"
	"time"
)

const projectCols = `id, title, description, start_date, end_date, assigned_employee_id, created_at, updated_at`

func scanProject(r rowScanner) (Project, error) {
	var (
		p                Project
		assigned         sql.NullInt64
		created, updated string
	)
	if err := r.Scan(&p.ID, &p.Title, &p.Description, &p.Start, &p.End, &assigned, &created, &updated); err != nil {
		return Project{}, err
	}
	p.AssignedEmployeeID = assigned.Int64
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectCols+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id))
	return p, mapErr(err)
}

// CreateProject inserts p, fills in its ID and timestamps, then runs fn
// (if non-nil) in the same transaction so nested tasks land atomically.
func (s *Store) CreateProject(ctx context.Context, p *Project, fn func(*Tx) error) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects(title, description, start_date, end_date, assigned_employee_id, created_at, updated_at)
			 VALUES(?,?,?,?,?,?,?)`,
			p.Title, p.Description, p.Start, p.End, nullInt(p.AssignedEmployeeID),
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		)
		if err != nil {
			return mapErr(err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		if fn == nil {
			return nil
		}
		return fn(&Tx{tx: tx, projectID: p.ID})
	})
}

// DeleteProject removes the project together with its tasks and audit rows.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return affected(res, err)
}

// InProject runs fn under the project's lock inside one transaction.
// fn must only use tx; calling back into the Store would deadlock on the
// single connection.
func (s *Store) InProject(ctx context.Context, projectID int64, fn func(*Tx) error) error {
	unlock := s.locks.lock(projectID)
	defer unlock()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&one)
		if err != nil {
			return mapErr(err)
		}
		return fn(&Tx{tx: tx, projectID: projectID})
	})
}
