package storage

import (
	"context"
	"database/sql"
	"time"

	"taskplan/internal/schedule"
)

const taskCols = `id, project_id, name, description, seq_order, status, start_date, end_date, duration_days, created_at, updated_at`

func scanTask(r rowScanner) (schedule.Task, error) {
	var (
		t                schedule.Task
		status           string
		dur              sql.NullInt64
		created, updated string
	)
	if err := r.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.Order, &status,
		&t.Start, &t.End, &dur, &created, &updated); err != nil {
		return schedule.Task{}, err
	}
	t.Status = schedule.Status(status)
	t.DurationDays = int(dur.Int64)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func queryTasks(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]schedule.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasks returns the tasks of one project ascending by order, or of every
// project (grouped by project) when projectID is 0.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]schedule.Task, error) {
	if projectID == 0 {
		return queryTasks(ctx, s.db, `SELECT `+taskCols+` FROM tasks ORDER BY project_id, seq_order`)
	}
	return queryTasks(ctx, s.db, `SELECT `+taskCols+` FROM tasks WHERE project_id = ? ORDER BY seq_order`, projectID)
}

func (s *Store) GetTask(ctx context.Context, id int64) (schedule.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
	return t, mapErr(err)
}

// ListAudit returns the newest audit entries of a project first.
func (s *Store) ListAudit(ctx context.Context, projectID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, project_id, task_id, action, delta_days, touched, meta
		 FROM schedule_audit WHERE project_id = ? ORDER BY id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e      AuditEntry
			at     string
			taskID sql.NullInt64
			action string
			meta   sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.ProjectID, &taskID, &action, &e.DeltaDays, &e.Touched, &meta); err != nil {
			return nil, err
		}
		e.At = parseTime(at)
		e.TaskID = taskID.Int64
		e.Action = AuditAction(action)
		e.MetaJSON = meta.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Tx is a transaction scoped to one project, obtained from Store.InProject
// or Store.CreateProject.
type Tx struct {
	tx        *sql.Tx
	projectID int64
}

func (t *Tx) ProjectID() int64 { return t.projectID }

func (t *Tx) Project(ctx context.Context) (Project, error) {
	p, err := scanProject(t.tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id = ?`, t.projectID))
	return p, mapErr(err)
}

// SaveProject writes every mutable project column.
func (t *Tx) SaveProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	res, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, start_date = ?, end_date = ?,
		 assigned_employee_id = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Description, p.Start, p.End, nullInt(p.AssignedEmployeeID), formatTime(p.UpdatedAt), t.projectID,
	)
	return affected(res, err)
}

// ListTasks returns the project's tasks ascending by order.
func (t *Tx) ListTasks(ctx context.Context) ([]schedule.Task, error) {
	return queryTasks(ctx, t.tx, `SELECT `+taskCols+` FROM tasks WHERE project_id = ? ORDER BY seq_order`, t.projectID)
}

// InsertTask stores task as given and fills in ID, ProjectID and timestamps.
func (t *Tx) InsertTask(ctx context.Context, task *schedule.Task) error {
	now := time.Now()
	task.ProjectID = t.projectID
	task.CreatedAt, task.UpdatedAt = now, now
	if task.Status == "" {
		task.Status = schedule.StatusPending
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO tasks(project_id, name, description, seq_order, status, start_date, end_date, duration_days, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		t.projectID, task.Name, task.Description, task.Order, string(task.Status),
		task.Start, task.End, nullInt(int64(task.DurationDays)),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
	)
	if err != nil {
		return mapErr(err)
	}
	task.ID, err = res.LastInsertId()
	return err
}

// SaveTask writes every mutable column of task. Dates are stored verbatim.
func (t *Tx) SaveTask(ctx context.Context, task *schedule.Task) error {
	task.UpdatedAt = time.Now()
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET name = ?, description = ?, seq_order = ?, status = ?, start_date = ?, end_date = ?,
		 duration_days = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
		task.Name, task.Description, task.Order, string(task.Status), task.Start, task.End,
		nullInt(int64(task.DurationDays)), formatTime(task.UpdatedAt), task.ID, t.projectID,
	)
	return affected(res, err)
}

// ApplyUpdates writes the dates of each update. Order and duration are untouched.
func (t *Tx) ApplyUpdates(ctx context.Context, updates []schedule.Update) error {
	if len(updates) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx,
		`UPDATE tasks SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ? AND project_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Start, u.End, now, u.TaskID, t.projectID)
		if err := affected(res, err); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) DeleteTask(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, id, t.projectID)
	return affected(res, err)
}

func (t *Tx) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	var meta any
	if e.MetaJSON != "" {
		meta = e.MetaJSON
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO schedule_audit(at, project_id, task_id, action, delta_days, touched, meta) VALUES(?,?,?,?,?,?,?)`,
		formatTime(e.At), t.projectID, nullInt(e.TaskID), string(e.Action), e.DeltaDays, e.Touched, meta,
	)
	return mapErr(err)
}
