package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskplan/internal/calendar"
	"taskplan/internal/config"
	"taskplan/internal/planner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "taskplan.yaml")
	body = "storage:\n  path: " + filepath.Join(dir, "taskplan.db") + "\n" + body
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const baseConfig = `
http:
  addr: 127.0.0.1:0
logging:
  level: error
`

func TestNewWiresPlanner(t *testing.T) {
	t.Parallel()
	a, err := New(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	p, _, err := a.Planner().CreateProject(context.Background(), planner.ProjectInput{
		Title: "Roadmap",
		Start: calendar.MustParse("2024-03-04"),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("project not stored")
	}
	if a.Notifier().Enabled() {
		t.Fatal("notifier enabled without config")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(writeConfig(t, "logging:\n  level: loud\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	a, err := New(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestApplyConfigEnablesNotifier(t *testing.T) {
	t.Parallel()
	a, err := New(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	prev := a.cfgm.Get()
	next := *prev
	next.Notifier = &config.NotifierConfig{Enabled: true, Token: "123:abc", ChatID: -100}
	next.Digest = &config.DigestConfig{Enabled: true, Schedule: "@daily"}
	a.applyConfig(prev, &next)

	if !a.Notifier().Enabled() {
		t.Fatal("notifier not enabled after reload")
	}
}

func TestMapNotifier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		cfg        *config.NotifierConfig
		wantSender bool
		wantErr    bool
	}{
		{"omitted", nil, false, false},
		{"disabled", &config.NotifierConfig{Token: "x", ChatID: 1}, false, false},
		{"enabled", &config.NotifierConfig{Enabled: true, Token: "123:abc", ChatID: 1, SendTimeout: "3s"}, true, false},
		{"bad timeout", &config.NotifierConfig{SendTimeout: "soon"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc, sender, err := mapNotifier(&config.Config{Notifier: tt.cfg})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if (sender != nil) != tt.wantSender {
				t.Fatalf("sender = %v", sender)
			}
			if tt.wantSender && nc.SendTimeout != 3*time.Second {
				t.Fatalf("send timeout = %v", nc.SendTimeout)
			}
		})
	}
}

func TestMapDigestDefaults(t *testing.T) {
	t.Parallel()
	dc, err := mapDigest(&config.Config{Digest: &config.DigestConfig{Enabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	if dc.Schedule != config.DefaultDigestSchedule || dc.Location != time.UTC {
		t.Fatalf("digest config = %+v", dc)
	}
}
