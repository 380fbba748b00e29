// Package httpapi exposes the planner over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"taskplan/internal/planner"
	logx "taskplan/pkg/logx"
)

const maxBodyBytes = 1 << 20

type Options struct {
	// RatePerSec limits requests process-wide; 0 disables limiting.
	RatePerSec int
	Burst      int
	// Health reports readiness for /healthz; nil always reports ok.
	Health func(ctx context.Context) error
}

type Server struct {
	svc     *planner.Service
	log     logx.Logger
	health  func(ctx context.Context) error
	handler http.Handler
}

func New(svc *planner.Service, log logx.Logger, opts Options) *Server {
	s := &Server{svc: svc, log: log.With(logx.String("comp", "http")), health: opts.Health}

	var lim *rate.Limiter
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.RatePerSec
		}
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = withRequestID(s.withAccessLog(s.withRecover(withRateLimit(lim, mux))))
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/employees", s.listEmployees)
	mux.HandleFunc("POST /api/employees", s.createEmployee)
	mux.HandleFunc("GET /api/employees/{id}", s.getEmployee)
	mux.HandleFunc("PATCH /api/employees/{id}", s.updateEmployee)
	mux.HandleFunc("DELETE /api/employees/{id}", s.deleteEmployee)

	mux.HandleFunc("GET /api/projects", s.listProjects)
	mux.HandleFunc("POST /api/projects", s.createProject)
	mux.HandleFunc("GET /api/projects/{id}", s.getProject)
	mux.HandleFunc("PATCH /api/projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProject)
	mux.HandleFunc("GET /api/projects/{id}/tasks", s.listProjectTasks)
	mux.HandleFunc("POST /api/projects/{id}/tasks", s.createTask)
	mux.HandleFunc("POST /api/projects/{id}/autoschedule", s.autoSchedule)
	mux.HandleFunc("GET /api/projects/{id}/audit", s.listAudit)

	mux.HandleFunc("GET /api/tasks", s.listTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.deleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/shift", s.shiftTask)
}

type ListenConfig struct {
	Addr                                   string
	ReadTimeout, WriteTimeout, IdleTimeout time.Duration
	// OnListen is called once the listener is bound.
	OnListen func(addr net.Addr)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg ListenConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	if cfg.OnListen != nil {
		cfg.OnListen(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	s.log.Info("http api stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a single JSON object. An empty body is an error unless allowEmpty.
func decode(r *http.Request, dest any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return errors.New("request body is empty")
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (s *Server) decodeOr400(w http.ResponseWriter, r *http.Request, dest any, allowEmpty bool) bool {
	if err := decode(r, dest, allowEmpty); err != nil {
		writeErrorKind(w, http.StatusBadRequest, kindInvalidJSON, err.Error())
		return false
	}
	return true
}

// pathID parses the {id} wildcard; it writes a 404 and returns false when invalid.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeErrorKind(w, http.StatusNotFound, kindNotFound, "not found")
		return 0, false
	}
	return id, true
}
