package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"taskplan/internal/eventbus"
	"taskplan/internal/planner"
	"taskplan/internal/storage"
	logx "taskplan/pkg/logx"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "api.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	svc := planner.New(st, eventbus.New(), logx.Nop())
	ts := httptest.NewServer(New(svc, logx.Nop(), opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func decodeInto[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d; body=%s", resp.StatusCode, want, body)
	}
}

func wantErrorKind(t *testing.T, resp *http.Response, body []byte, status int, kind string) {
	t.Helper()
	wantStatus(t, resp, body, status)
	if got := decodeInto[errorBody](t, body); got.Error != kind {
		t.Fatalf("error kind = %q, want %q (%s)", got.Error, kind, got.Message)
	}
}

const launchProject = `{
	"title": "Launch",
	"start_date": "2024-01-01",
	"tasks": [
		{"name": "a", "start_date": "2024-01-01", "completion_days": 5},
		{"name": "b", "start_date": "2024-01-09", "completion_days": 2}
	]
}`

func createLaunch(t *testing.T, ts *httptest.Server) projectJSON {
	t.Helper()
	resp, body := do(t, ts, http.MethodPost, "/api/projects", launchProject)
	wantStatus(t, resp, body, http.StatusCreated)
	return decodeInto[projectJSON](t, body)
}

func TestCreateProjectWithTasks(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})
	p := createLaunch(t, ts)

	if len(p.Tasks) != 2 {
		t.Fatalf("tasks = %d", len(p.Tasks))
	}
	if got := p.Tasks[0].EndDate.String(); got != "2024-01-08" {
		t.Fatalf("a end = %s", got)
	}
	if p.Tasks[1].Order != 2 || p.Tasks[1].Status != "pending" {
		t.Fatalf("b = %+v", p.Tasks[1])
	}
	if p.Tasks[0].CompletionTime == nil || *p.Tasks[0].CompletionTime != 7 {
		t.Fatalf("completion_time = %v", p.Tasks[0].CompletionTime)
	}

	resp, body := do(t, ts, http.MethodGet, "/api/projects/"+itoa(p.ID), "")
	wantStatus(t, resp, body, http.StatusOK)
	got := decodeInto[projectJSON](t, body)
	if got.Title != "Launch" || len(got.Tasks) != 2 {
		t.Fatalf("get = %+v", got)
	}
}

func TestPatchTaskCascades(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})
	p := createLaunch(t, ts)
	a := p.Tasks[0]

	resp, body := do(t, ts, http.MethodPatch, "/api/tasks/"+itoa(a.ID), `{"end_date": "2024-01-10"}`)
	wantStatus(t, resp, body, http.StatusOK)
	res := decodeInto[scheduleResultJSON](t, body)

	if res.DeltaDays != 2 || res.Touched != 1 {
		t.Fatalf("delta=%d touched=%d", res.DeltaDays, res.Touched)
	}
	if res.Task == nil || res.Task.EndDate.String() != "2024-01-10" {
		t.Fatalf("task = %+v", res.Task)
	}
	b := res.Tasks[1]
	if b.StartDate.String() != "2024-01-11" || b.EndDate.String() != "2024-01-13" {
		t.Fatalf("b = %s..%s", b.StartDate, b.EndDate)
	}
}

func TestShiftAndAutoSchedule(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})
	p := createLaunch(t, ts)

	resp, body := do(t, ts, http.MethodPost, "/api/tasks/"+itoa(p.Tasks[0].ID)+"/shift", `{"days": 1}`)
	wantStatus(t, resp, body, http.StatusOK)
	res := decodeInto[scheduleResultJSON](t, body)
	if res.Tasks[0].StartDate.String() != "2024-01-02" || res.Tasks[1].StartDate.String() != "2024-01-10" {
		t.Fatalf("shifted = %+v", res.Tasks)
	}

	resp, body = do(t, ts, http.MethodPost, "/api/tasks/"+itoa(p.Tasks[0].ID)+"/shift", `{}`)
	wantErrorKind(t, resp, body, http.StatusBadRequest, "missing_shift_amount")

	resp, body = do(t, ts, http.MethodPost, "/api/projects/"+itoa(p.ID)+"/autoschedule", "")
	wantStatus(t, resp, body, http.StatusOK)
	res = decodeInto[scheduleResultJSON](t, body)
	if res.Project == nil || res.Project.ID != p.ID {
		t.Fatalf("project = %+v", res.Project)
	}
	if res.Tasks[0].StartDate.String() != "2024-01-01" || res.Tasks[1].StartDate.String() != "2024-01-09" {
		t.Fatalf("autoscheduled = %+v", res.Tasks)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/projects/"+itoa(p.ID)+"/audit?limit=10", "")
	wantStatus(t, resp, body, http.StatusOK)
	if entries := decodeInto[[]auditJSON](t, body); len(entries) != 2 {
		t.Fatalf("audit entries = %d", len(entries))
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})
	p := createLaunch(t, ts)

	tests := []struct {
		name         string
		method, path string
		body         string
		status       int
		kind         string
	}{
		{"unknown task", http.MethodGet, "/api/tasks/999", "", http.StatusNotFound, kindNotFound},
		{"bad id", http.MethodGet, "/api/tasks/abc", "", http.StatusNotFound, kindNotFound},
		{"unknown field", http.MethodPatch, "/api/tasks/" + itoa(p.Tasks[0].ID), `{"nope": 1}`, http.StatusBadRequest, kindInvalidJSON},
		{"empty body", http.MethodPost, "/api/projects", "", http.StatusBadRequest, kindInvalidJSON},
		{"duplicate order", http.MethodPatch, "/api/tasks/" + itoa(p.Tasks[1].ID), `{"order": 1}`, http.StatusConflict, "duplicate_order"},
		{"end before start", http.MethodPatch, "/api/tasks/" + itoa(p.Tasks[0].ID), `{"end_date": "2023-12-01"}`, http.StatusBadRequest, "end_before_start"},
		{"zero duration", http.MethodPatch, "/api/tasks/" + itoa(p.Tasks[0].ID), `{"completion_days": 0}`, http.StatusBadRequest, "invalid_duration"},
		{"missing title", http.MethodPost, "/api/projects", `{"title": " "}`, http.StatusBadRequest, "invalid_input"},
		{"bad project filter", http.MethodGet, "/api/tasks?project=x", "", http.StatusBadRequest, "invalid_input"},
		{"unknown employee", http.MethodPatch, "/api/projects/" + itoa(p.ID), `{"assigned_employee": 42}`, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, tt.method, tt.path, tt.body)
			wantErrorKind(t, resp, body, tt.status, tt.kind)
		})
	}
}

func TestEmployeesCRUD(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})

	resp, body := do(t, ts, http.MethodPost, "/api/employees", `{"name": "Ada", "email": "Ada@Example.com", "department": "engineering"}`)
	wantStatus(t, resp, body, http.StatusCreated)
	e := decodeInto[employeeJSON](t, body)
	if e.Email != "Ada@Example.com" {
		t.Fatalf("email = %q", e.Email)
	}

	resp, body = do(t, ts, http.MethodPost, "/api/employees", `{"name": "Ada 2", "email": "ada@example.com"}`)
	wantErrorKind(t, resp, body, http.StatusConflict, kindConflict)

	resp, body = do(t, ts, http.MethodPatch, "/api/employees/"+itoa(e.ID), `{"name": "Ada L."}`)
	wantStatus(t, resp, body, http.StatusOK)
	if got := decodeInto[employeeJSON](t, body); got.Name != "Ada L." || got.Department != "engineering" {
		t.Fatalf("patched = %+v", got)
	}

	resp, body = do(t, ts, http.MethodDelete, "/api/employees/"+itoa(e.ID), "")
	wantStatus(t, resp, body, http.StatusNoContent)

	resp, body = do(t, ts, http.MethodGet, "/api/employees", "")
	wantStatus(t, resp, body, http.StatusOK)
	if list := decodeInto[[]employeeJSON](t, body); len(list) != 0 {
		t.Fatalf("employees = %+v", list)
	}
}

func TestDeleteProjectRemovesTasks(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{})
	p := createLaunch(t, ts)

	resp, body := do(t, ts, http.MethodDelete, "/api/projects/"+itoa(p.ID), "")
	wantStatus(t, resp, body, http.StatusNoContent)

	resp, body = do(t, ts, http.MethodGet, "/api/tasks", "")
	wantStatus(t, resp, body, http.StatusOK)
	if list := decodeInto[[]taskJSON](t, body); len(list) != 0 {
		t.Fatalf("tasks = %d", len(list))
	}

	resp, body = do(t, ts, http.MethodGet, "/api/projects/"+itoa(p.ID)+"/tasks", "")
	wantErrorKind(t, resp, body, http.StatusNotFound, kindNotFound)
}

func TestRequestIDAndRateLimit(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{RatePerSec: 1, Burst: 1})

	resp, body := do(t, ts, http.MethodGet, "/healthz", "")
	wantStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get(headerRequestID) == "" {
		t.Fatal("missing request id header")
	}

	resp, body = do(t, ts, http.MethodGet, "/healthz", "")
	wantErrorKind(t, resp, body, http.StatusTooManyRequests, kindRateLimited)
}

func TestHealthReportsDegraded(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Options{Health: func(context.Context) error { return errors.New("db down") }})

	resp, body := do(t, ts, http.MethodGet, "/healthz", "")
	wantStatus(t, resp, body, http.StatusServiceUnavailable)
	if !strings.Contains(string(body), "db down") {
		t.Fatalf("body = %s", body)
	}
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	t.Parallel()
	s := &Server{log: logx.Nop()}
	h := s.withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
