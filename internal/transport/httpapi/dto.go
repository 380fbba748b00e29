package httpapi

import (
	"encoding/json"
	"time"

	"taskplan/internal/calendar"
	"taskplan/internal/planner"
	"taskplan/internal/schedule"
	"taskplan/internal/storage"
)

// optional tells an absent JSON field apart from an explicit null.
type optional[T any] struct {
	Set bool
	V   T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		var zero T
		o.V = zero
		return nil
	}
	return json.Unmarshal(b, &o.V)
}

func (o optional[T]) ptr() *T {
	if !o.Set {
		return nil
	}
	v := o.V
	return &v
}

type employeeJSON struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEmployeeJSON(e storage.Employee) employeeJSON {
	return employeeJSON{ID: e.ID, Name: e.Name, Email: e.Email, Department: string(e.Department), CreatedAt: e.CreatedAt}
}

type employeeRequest struct {
	Name       optional[string] `json:"name"`
	Email      optional[string] `json:"email"`
	Department optional[string] `json:"department"`
}

type taskJSON struct {
	ID             int64         `json:"id"`
	ProjectID      int64         `json:"project"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Order          int           `json:"order"`
	Status         string        `json:"status"`
	StartDate      calendar.Date `json:"start_date"`
	EndDate        calendar.Date `json:"end_date"`
	CompletionDays *int          `json:"completion_days"`
	CompletionTime *int          `json:"completion_time"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func toTaskJSON(t schedule.Task) taskJSON {
	out := taskJSON{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Name:        t.Name,
		Description: t.Description,
		Order:       t.Order,
		Status:      string(t.Status),
		StartDate:   t.Start,
		EndDate:     t.End,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DurationDays > 0 {
		d := t.DurationDays
		out.CompletionDays = &d
	}
	if span, ok := t.CompletionSpan(); ok {
		out.CompletionTime = &span
	}
	return out
}

func toTaskList(tasks []schedule.Task) []taskJSON {
	out := make([]taskJSON, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskJSON(t)
	}
	return out
}

type taskRequest struct {
	Name           optional[string]        `json:"name"`
	Description    optional[string]        `json:"description"`
	Order          optional[int]           `json:"order"`
	Status         optional[string]        `json:"status"`
	StartDate      optional[calendar.Date] `json:"start_date"`
	EndDate        optional[calendar.Date] `json:"end_date"`
	CompletionDays optional[int]           `json:"completion_days"`
}

func (r taskRequest) input() planner.TaskInput {
	in := planner.TaskInput{
		Name:        r.Name.V,
		Description: r.Description.V,
		Order:       r.Order.V,
		Status:      r.Status.V,
		Start:       r.StartDate.V,
		End:         r.EndDate.V,
	}
	if r.CompletionDays.Set {
		in.DurationDays = r.CompletionDays.ptr()
	}
	return in
}

func (r taskRequest) change() schedule.Change {
	c := schedule.Change{
		Name:        r.Name.ptr(),
		Description: r.Description.ptr(),
		Order:       r.Order.ptr(),
		Start:       r.StartDate.ptr(),
		End:         r.EndDate.ptr(),
	}
	if r.Status.Set {
		st := schedule.Status(r.Status.V)
		c.Status = &st
	}
	if r.CompletionDays.Set {
		c.DurationDays = r.CompletionDays.ptr()
	}
	return c
}

type projectJSON struct {
	ID                 int64         `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	StartDate          calendar.Date `json:"start_date"`
	EndDate            calendar.Date `json:"end_date"`
	AssignedEmployeeID *int64        `json:"assigned_employee"`
	CompletionTime     *int          `json:"completion_time"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	Tasks              []taskJSON    `json:"tasks,omitempty"`
}

func toProjectJSON(p storage.Project, tasks []schedule.Task) projectJSON {
	out := projectJSON{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		StartDate:   p.Start,
		EndDate:     p.End,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.AssignedEmployeeID != 0 {
		id := p.AssignedEmployeeID
		out.AssignedEmployeeID = &id
	}
	if span, ok := p.CompletionSpan(); ok {
		out.CompletionTime = &span
	}
	if tasks != nil {
		out.Tasks = toTaskList(tasks)
	}
	return out
}

type projectRequest struct {
	Title            optional[string]        `json:"title"`
	Description      optional[string]        `json:"description"`
	StartDate        optional[calendar.Date] `json:"start_date"`
	EndDate          optional[calendar.Date] `json:"end_date"`
	AssignedEmployee optional[int64]         `json:"assigned_employee"`
	Tasks            []taskRequest           `json:"tasks"`
}

func (r projectRequest) input() planner.ProjectInput {
	in := planner.ProjectInput{
		Title:              r.Title.V,
		Description:        r.Description.V,
		Start:              r.StartDate.V,
		End:                r.EndDate.V,
		AssignedEmployeeID: r.AssignedEmployee.V,
	}
	for _, t := range r.Tasks {
		in.Tasks = append(in.Tasks, t.input())
	}
	return in
}

func (r projectRequest) patch() planner.ProjectPatch {
	return planner.ProjectPatch{
		Title:              r.Title.ptr(),
		Description:        r.Description.ptr(),
		Start:              r.StartDate.ptr(),
		End:                r.EndDate.ptr(),
		AssignedEmployeeID: r.AssignedEmployee.ptr(),
	}
}

type shiftRequest struct {
	Days int `json:"days"`
}

type autoScheduleRequest struct {
	StartDate calendar.Date `json:"start_date"`
}

type scheduleResultJSON struct {
	Project   *projectJSON `json:"project,omitempty"`
	Task      *taskJSON    `json:"task,omitempty"`
	Tasks     []taskJSON   `json:"tasks"`
	DeltaDays int          `json:"delta_days"`
	Touched   int          `json:"touched"`
}

func toResultJSON(res planner.Result, withProject bool) scheduleResultJSON {
	out := scheduleResultJSON{
		Tasks:     toTaskList(res.Tasks),
		DeltaDays: res.DeltaDays,
		Touched:   res.Touched,
	}
	if withProject {
		p := toProjectJSON(res.Project, nil)
		out.Project = &p
	}
	if res.Task.ID != 0 {
		t := toTaskJSON(res.Task)
		out.Task = &t
	}
	return out
}

type auditJSON struct {
	ID        int64           `json:"id"`
	At        time.Time       `json:"at"`
	TaskID    *int64          `json:"task,omitempty"`
	Action    string          `json:"action"`
	DeltaDays int             `json:"delta_days"`
	Touched   int             `json:"touched"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

func toAuditJSON(e storage.AuditEntry) auditJSON {
	out := auditJSON{ID: e.ID, At: e.At, Action: string(e.Action), DeltaDays: e.DeltaDays, Touched: e.Touched}
	if e.TaskID != 0 {
		id := e.TaskID
		out.TaskID = &id
	}
	if e.MetaJSON != "" && json.Valid([]byte(e.MetaJSON)) {
		out.Meta = json.RawMessage(e.MetaJSON)
	}
	return out
}
