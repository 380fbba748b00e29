package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskplan/internal/schedule"
	"taskplan/internal/storage"
	logx "taskplan/pkg/logx"
)

const (
	kindNotFound    = "not_found"
	kindConflict    = "conflict"
	kindInvalidJSON = "invalid_json"
	kindRateLimited = "rate_limited"
	kindInternal    = "internal"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps err to an HTTP status and a stable error kind.
func classify(err error) (int, string) {
	if kind, ok := schedule.KindOf(err); ok {
		if kind == schedule.KindDuplicateOrder {
			return http.StatusConflict, string(kind)
		}
		return http.StatusBadRequest, string(kind)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, kindConflict
	case errors.Is(err, storage.ErrReference):
		return http.StatusBadRequest, string(schedule.KindInvalidInput)
	}
	return http.StatusInternalServerError, kindInternal
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorKind(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			logx.String("request_id", requestID(r.Context())),
			logx.String("path", r.URL.Path),
			logx.Err(err),
		)
		msg = "internal error"
	}
	writeErrorKind(w, status, kind, msg)
}
