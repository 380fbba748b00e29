package pprof

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "taskplan/pkg/logx"
)

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:6060", true},
		{"[::1]:6060", true},
		{":6060", false},
		{"0.0.0.0:6060", false},
		{"10.0.0.5:6060", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := isLoopbackAddr(tt.addr); got != tt.want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestStateRequiresToken(t *testing.T) {
	t.Parallel()
	svc := New(Config{Token: "s3cret"}, func() any { return map[string]int{"goroutines": 3} }, logx.Nop())
	h := svc.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/state", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"goroutines": 3`) {
		t.Fatalf("bearer: status = %d body = %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/state?token=wrong", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong query token: status = %d", rec.Code)
	}
}

func TestRunRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	svc := New(Config{Addr: "0.0.0.0:0"}, nil, logx.Nop())
	if err := svc.Run(context.Background()); !errors.Is(err, ErrInsecureBind) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(Config{Addr: "127.0.0.1:0"}, nil, logx.Nop())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v", err)
	}
}
