package httpapi

import (
	"net/http"
	"strconv"

	"taskplan/internal/planner"
	"taskplan/internal/schedule"
)

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListEmployees(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]employeeJSON, len(list))
	for i, e := range list {
		out[i] = toEmployeeJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	e, err := s.svc.CreateEmployee(r.Context(), planner.EmployeeInput{
		Name:       req.Name.V,
		Email:      req.Email.V,
		Department: req.Department.V,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeJSON(e))
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.GetEmployee(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeJSON(e))
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req employeeRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	e, err := s.svc.UpdateEmployee(r.Context(), id, planner.EmployeePatch{
		Name:       req.Name.ptr(),
		Email:      req.Email.ptr(),
		Department: req.Department.ptr(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeJSON(e))
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteEmployee(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]projectJSON, len(list))
	for i, p := range list {
		out[i] = toProjectJSON(p, nil)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	p, tasks, err := s.svc.CreateProject(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectJSON(p, tasks))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.GetProject(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.svc.ListTasks(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectJSON(p, nonNil(tasks)))
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	if len(req.Tasks) > 0 {
		writeErrorKind(w, http.StatusBadRequest, string(schedule.KindInvalidInput), "tasks cannot be edited through the project")
		return
	}
	p, err := s.svc.UpdateProject(r.Context(), id, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectJSON(p, nil))
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteProject(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.writeTasks(w, r, id)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var projectID int64
	if raw := r.URL.Query().Get("project"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			writeErrorKind(w, http.StatusBadRequest, string(schedule.KindInvalidInput), "project must be a positive integer")
			return
		}
		projectID = id
	}
	s.writeTasks(w, r, projectID)
}

func (s *Server) writeTasks(w http.ResponseWriter, r *http.Request, projectID int64) {
	tasks, err := s.svc.ListTasks(r.Context(), projectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskList(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	t, err := s.svc.CreateTask(r.Context(), id, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskJSON(t))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.svc.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(t))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !s.decodeOr400(w, r, &req, false) {
		return
	}
	res, err := s.svc.UpdateTask(r.Context(), id, req.change())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(res, false))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteTask(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) shiftTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req shiftRequest
	if !s.decodeOr400(w, r, &req, true) {
		return
	}
	res, err := s.svc.ShiftTask(r.Context(), id, req.Days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(res, false))
}

func (s *Server) autoSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req autoScheduleRequest
	if !s.decodeOr400(w, r, &req, true) {
		return
	}
	res, err := s.svc.AutoSchedule(r.Context(), id, req.StartDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(res, true))
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorKind(w, http.StatusBadRequest, string(schedule.KindInvalidInput), "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.svc.ListAudit(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]auditJSON, len(entries))
	for i, e := range entries {
		out[i] = toAuditJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
