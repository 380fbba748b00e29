package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"taskplan/internal/calendar"
	"taskplan/internal/schedule"
	logx "taskplan/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createProject(t *testing.T, s *Store, title string, tasks ...schedule.Task) Project {
	t.Helper()
	p := Project{Title: title, Start: calendar.MustParse("2024-01-01")}
	err := s.CreateProject(context.Background(), &p, func(tx *Tx) error {
		for i := range tasks {
			if err := tx.InsertTask(context.Background(), &tasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestOpenRecordsSchemaVersion(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	v, err := s.UserVersion(context.Background())
	if err != nil {
		t.Fatalf("UserVersion: %v", err)
	}
	if v != SchemaVersion {
		t.Fatalf("user_version = %d, want %d", v, SchemaVersion)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "again.db")
	for i := 0; i < 2; i++ {
		s, err := Open(Config{Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		_ = s.Close()
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmployees(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	bob := Employee{Name: "Bob", Email: "bob@example.com", Department: DeptDesign}
	alice := Employee{Name: "alice", Email: "alice@example.com", Department: DeptEngineering}
	for _, e := range []*Employee{&bob, &alice} {
		if err := s.CreateEmployee(ctx, e); err != nil {
			t.Fatalf("CreateEmployee: %v", err)
		}
	}

	dup := Employee{Name: "Bobby", Email: "BOB@example.com", Department: DeptOther}
	if err := s.CreateEmployee(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}

	list, err := s.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alice" || list[1].Name != "Bob" {
		t.Fatalf("unexpected order: %+v", list)
	}

	bob.Department = DeptSales
	if err := s.UpdateEmployee(ctx, bob); err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}
	got, err := s.GetEmployee(ctx, bob.ID)
	if err != nil || got.Department != DeptSales {
		t.Fatalf("GetEmployee = %+v, %v", got, err)
	}

	if err := s.DeleteEmployee(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing err = %v", err)
	}
	if _, err := s.GetEmployee(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing err = %v", err)
	}
}

func TestDeleteEmployeeUnassignsProjects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	e := Employee{Name: "Ann", Email: "ann@example.com", Department: DeptOther}
	if err := s.CreateEmployee(ctx, &e); err != nil {
		t.Fatal(err)
	}
	p := Project{Title: "Launch", AssignedEmployeeID: e.ID}
	if err := s.CreateProject(ctx, &p, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEmployee(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedEmployeeID != 0 {
		t.Fatalf("assigned = %d, want 0", got.AssignedEmployeeID)
	}
}

func TestCreateProjectWithUnknownEmployee(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	p := Project{Title: "Ghost", AssignedEmployeeID: 42}
	if err := s.CreateProject(context.Background(), &p, nil); !errors.Is(err, ErrReference) {
		t.Fatalf("err = %v, want ErrReference", err)
	}
}

func TestProjectsNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	first := createProject(t, s, "first")
	second := createProject(t, s, "second")

	list, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	p := createProject(t, s, "p",
		schedule.Task{Name: "b", Order: 2},
		schedule.Task{
			Name:         "a",
			Order:        1,
			Status:       schedule.StatusInProgress,
			Start:        calendar.MustParse("2024-01-01"),
			End:          calendar.MustParse("2024-01-08"),
			DurationDays: 5,
		},
	)

	tasks, err := s.ListTasks(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d", len(tasks))
	}
	a, b := tasks[0], tasks[1]
	if a.Name != "a" || a.Order != 1 || a.DurationDays != 5 || a.Status != schedule.StatusInProgress {
		t.Fatalf("a = %+v", a)
	}
	if a.Start.String() != "2024-01-01" || a.End.String() != "2024-01-08" {
		t.Fatalf("a dates = %s..%s", a.Start, a.End)
	}
	if !b.Start.IsZero() || !b.End.IsZero() || b.DurationDays != 0 || b.Status != schedule.StatusPending {
		t.Fatalf("b = %+v", b)
	}
	if a.ProjectID != p.ID || a.CreatedAt.IsZero() {
		t.Fatalf("a metadata = %+v", a)
	}
}

func TestDuplicateOrderIsConflict(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	p := createProject(t, s, "p", schedule.Task{Name: "a", Order: 1})
	err := s.InProject(context.Background(), p.ID, func(tx *Tx) error {
		return tx.InsertTask(context.Background(), &schedule.Task{Name: "b", Order: 1})
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestInProjectRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	p := createProject(t, s, "p", schedule.Task{Name: "a", Order: 1, Start: calendar.MustParse("2024-01-01")})

	boom := errors.New("boom")
	err := s.InProject(ctx, p.ID, func(tx *Tx) error {
		tasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		u := schedule.Update{TaskID: tasks[0].ID, Start: calendar.MustParse("2024-02-01")}
		if err := tx.ApplyUpdates(ctx, []schedule.Update{u}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	tasks, _ := s.ListTasks(ctx, p.ID)
	if tasks[0].Start.String() != "2024-01-01" {
		t.Fatalf("write survived rollback: %s", tasks[0].Start)
	}
}

func TestInProjectMissingProject(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	called := false
	err := s.InProject(context.Background(), 404, func(*Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNotFound) || called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}

func TestApplyUpdatesAndAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	p := createProject(t, s, "p",
		schedule.Task{Name: "a", Order: 1, Start: calendar.MustParse("2024-01-01"), End: calendar.MustParse("2024-01-08"), DurationDays: 5},
	)

	err := s.InProject(ctx, p.ID, func(tx *Tx) error {
		tasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		ups, err := schedule.Shift(tasks, tasks[0].ID, 2)
		if err != nil {
			return err
		}
		if err := tx.ApplyUpdates(ctx, ups); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, AuditEntry{TaskID: tasks[0].ID, Action: AuditShift, DeltaDays: 2, Touched: len(ups), MetaJSON: `{"days":2}`})
	})
	if err != nil {
		t.Fatalf("InProject: %v", err)
	}

	tasks, _ := s.ListTasks(ctx, p.ID)
	if tasks[0].Start.String() != "2024-01-03" || tasks[0].End.String() != "2024-01-10" {
		t.Fatalf("dates = %s..%s", tasks[0].Start, tasks[0].End)
	}
	if tasks[0].DurationDays != 5 {
		t.Fatalf("duration changed: %d", tasks[0].DurationDays)
	}

	audit, err := s.ListAudit(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 1 || audit[0].Action != AuditShift || audit[0].DeltaDays != 2 || audit[0].Touched != 1 {
		t.Fatalf("audit = %+v", audit)
	}
}

func TestDeleteProjectCascadesTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	p := createProject(t, s, "p", schedule.Task{Name: "a", Order: 1})
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	tasks, err := s.ListTasks(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("tasks left behind: %+v", tasks)
	}
	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestInProjectSerializesPerProject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	p := createProject(t, s, "p", schedule.Task{Name: "a", Order: 1, Start: calendar.MustParse("2024-01-01")})

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InProject(ctx, p.ID, func(tx *Tx) error {
				tasks, err := tx.ListTasks(ctx)
				if err != nil {
					return err
				}
				ups, err := schedule.Shift(tasks, tasks[0].ID, 1)
				if err != nil {
					return err
				}
				return tx.ApplyUpdates(ctx, ups)
			})
			if err != nil {
				t.Errorf("InProject: %v", err)
			}
		}()
	}
	wg.Wait()

	tasks, _ := s.ListTasks(ctx, p.ID)
	if want := calendar.MustParse("2024-01-01").AddDays(workers); !tasks[0].Start.Equal(want) {
		t.Fatalf("start = %s, want %s", tasks[0].Start, want)
	}
}
