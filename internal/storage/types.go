package storage

import (
	"errors"
	"time"

	"taskplan/internal/calendar"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation (employee email, task order).
	ErrConflict = errors.New("conflict")
	// ErrReference reports a foreign key pointing at a missing row.
	ErrReference = errors.New("referenced record does not exist")
	ErrClosed    = errors.New("storage closed")
)

// SchemaVersion is the user_version written by migrations.sql.
const SchemaVersion = 1

// Config configures storage. Only the "sqlite" driver exists.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means 5s
}

type Department string

const (
	DeptEngineering Department = "engineering"
	DeptDesign      Department = "design"
	DeptMarketing   Department = "marketing"
	DeptSales       Department = "sales"
	DeptHR          Department = "hr"
	DeptFinance     Department = "finance"
	DeptOperations  Department = "operations"
	DeptOther       Department = "other"
)

// Departments lists every accepted department.
var Departments = []Department{
	DeptEngineering, DeptDesign, DeptMarketing, DeptSales,
	DeptHR, DeptFinance, DeptOperations, DeptOther,
}

type Employee struct {
	ID         int64
	Name       string
	Email      string
	Department Department
	CreatedAt  time.Time
}

type Project struct {
	ID          int64
	Title       string
	Description string
	Start       calendar.Date
	End         calendar.Date

	// AssignedEmployeeID is 0 when nobody is assigned.
	AssignedEmployeeID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompletionSpan is End - Start in calendar days. ok is false unless both are set.
func (p Project) CompletionSpan() (days int, ok bool) {
	if p.Start.IsZero() || p.End.IsZero() {
		return 0, false
	}
	return p.End.Sub(p.Start), true
}

type AuditAction string

const (
	AuditEdit         AuditAction = "edit"
	AuditShift        AuditAction = "shift"
	AuditAutoSchedule AuditAction = "autoschedule"
)

// AuditEntry records one schedule-changing operation.
// TaskID is 0 for project-wide operations.
type AuditEntry struct {
	ID        int64
	At        time.Time
	ProjectID int64
	TaskID    int64
	Action    AuditAction
	DeltaDays int
	Touched   int
	MetaJSON  string
}
