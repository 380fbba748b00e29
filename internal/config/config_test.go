package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const yamlConfig = `
http:
  addr: ":9000"
  read_timeout: 5s
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./plan.db
notifier:
  enabled: true
  token: "123:abc"
  chat_id: -100123
digest:
  enabled: true
  timezone: Europe/Berlin
`

const tomlConfig = `
[http]
addr = ":9000"
read_timeout = "5s"

[logging]
level = "debug"
console = true

[storage]
driver = "sqlite"
path = "./plan.db"

[notifier]
enabled = true
token = "123:abc"
chat_id = -100123

[digest]
enabled = true
timezone = "Europe/Berlin"
`

const jsonConfig = `{
  "http": {"addr": ":9000", "read_timeout": "5s"},
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
  "storage": {"driver": "sqlite", "path": "./plan.db"},
  "notifier": {"enabled": true, "token": "123:abc", "chat_id": -100123},
  "digest": {"enabled": true, "timezone": "Europe/Berlin"}
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestParseFormats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "yaml", file: "taskplan.yaml", body: yamlConfig},
		{name: "yml", file: "taskplan.yml", body: yamlConfig},
		{name: "toml", file: "taskplan.toml", body: tomlConfig},
		{name: "json", file: "taskplan.json", body: jsonConfig},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewConfigManager(writeFile(t, tt.file, tt.body))
			cfg, err := m.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.HTTP.ListenAddr() != ":9000" {
				t.Fatalf("addr = %q", cfg.HTTP.ListenAddr())
			}
			if read, _, _ := cfg.HTTP.Timeouts(); read != 5*time.Second {
				t.Fatalf("read timeout = %v", read)
			}
			if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
				t.Fatalf("logging = %+v", cfg.Logging)
			}
			if cfg.Notifier == nil || cfg.Notifier.ChatID != -100123 {
				t.Fatalf("notifier = %+v", cfg.Notifier)
			}
			if cfg.Digest == nil || cfg.Digest.ScheduleOrDefault() != DefaultDigestSchedule {
				t.Fatalf("digest = %+v", cfg.Digest)
			}
			if m.Get() != cfg {
				t.Fatal("Load did not commit config")
			}
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "c.yaml", "storage:\n  drvier: sqlite\n"))
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "drvier") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "c.json", `{"http":{}} {"http":{}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty ok", cfg: Config{}},
		{name: "bad duration", cfg: Config{HTTP: HTTPConfig{ReadTimeout: "soon"}}, wantErr: "http.read_timeout"},
		{name: "negative duration", cfg: Config{Storage: StorageConfig{BusyTimeout: "-1s"}}, wantErr: "storage.busy_timeout"},
		{name: "bad level", cfg: Config{Logging: LoggingConfig{Level: "loud"}}, wantErr: "logging.level"},
		{name: "file without path", cfg: Config{Logging: LoggingConfig{File: LoggingFile{Enabled: true}}}, wantErr: "logging.file.path"},
		{name: "bad driver", cfg: Config{Storage: StorageConfig{Driver: "postgres"}}, wantErr: "storage.driver"},
		{name: "notifier without token", cfg: Config{Notifier: &NotifierConfig{Enabled: true, ChatID: 1}}, wantErr: "notifier.token"},
		{name: "disabled notifier ok", cfg: Config{Notifier: &NotifierConfig{}}},
		{name: "bad cron", cfg: Config{Digest: &DigestConfig{Schedule: "every morning"}}, wantErr: "digest.schedule"},
		{name: "descriptor cron", cfg: Config{Digest: &DigestConfig{Schedule: "@daily"}}},
		{name: "bad timezone", cfg: Config{Digest: &DigestConfig{Timezone: "Mars/Olympus"}}, wantErr: "digest.timezone"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	var cfg Config
	if cfg.HTTP.ListenAddr() != DefaultHTTPAddr {
		t.Fatalf("addr = %q", cfg.HTTP.ListenAddr())
	}
	r, w, i := cfg.HTTP.Timeouts()
	if r != 10*time.Second || w != 30*time.Second || i != 60*time.Second {
		t.Fatalf("timeouts = %v %v %v", r, w, i)
	}
	if cfg.Storage.DriverOrDefault() != "sqlite" || cfg.Storage.PathOrDefault() != DefaultStoragePath {
		t.Fatalf("storage defaults = %q %q", cfg.Storage.DriverOrDefault(), cfg.Storage.PathOrDefault())
	}
	if cfg.Storage.BusyTimeoutOrDefault() != 5*time.Second {
		t.Fatalf("busy timeout = %v", cfg.Storage.BusyTimeoutOrDefault())
	}
	loc, err := DigestConfig{}.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("Location = %v, %v", loc, err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Logging: LoggingConfig{Level: "info"}}
	newCfg := &Config{
		Logging:  LoggingConfig{Level: "debug"},
		Notifier: &NotifierConfig{Enabled: true, Token: "secret", ChatID: 7},
	}
	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "logging,notifier" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}

	changed, _ = SummarizeConfigChange(newCfg, newCfg)
	if len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	a, b := &Config{}, &Config{}
	m.publish(a)
	m.publish(b)
	if got := <-ch; got != b {
		t.Fatal("subscriber did not receive newest config")
	}
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after Unsubscribe")
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "c.yaml", "logging:\n  level: info\n")
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(4)
	ctx := context.Background()

	m.reload(ctx)
	select {
	case <-ch:
		t.Fatal("unchanged config was published")
	default:
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m.reload(ctx)
	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("level = %q", cfg.Logging.Level)
		}
	default:
		t.Fatal("changed config not published")
	}

	m.SetValidator(func(context.Context, *Config) error { return os.ErrInvalid })
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m.reload(ctx)
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("rejected config was committed: %q", m.Get().Logging.Level)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 3 * time.Second},
		{raw: "  ", want: 3 * time.Second},
		{raw: "0s", want: 3 * time.Second},
		{raw: "1m30s", want: 90 * time.Second},
		{raw: "-2s", wantErr: true},
		{raw: "later", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationOrDefault("notifier.send_timeout", tt.raw, 3*time.Second)
		if tt.wantErr {
			if err == nil || !strings.Contains(err.Error(), "notifier.send_timeout") {
				t.Fatalf("%q: err = %v, want error naming the key", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}
