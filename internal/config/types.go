package config

// Config is the on-disk configuration (JSON, YAML or TOML).
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`

	// Notifier pushes schedule changes to a Telegram chat.
	// If omitted, schedule events are only logged.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	// Digest posts a daily summary of task starts, ends and overdue tasks.
	Digest *DigestConfig `json:"digest,omitempty"`

	// Debug serves pprof and a runtime state dump. Disabled when omitted.
	Debug *DebugConfig `json:"debug,omitempty"`
}

// HTTPConfig controls the JSON API server.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - addr: "127.0.0.1:8000"
//   - read_timeout: "10s", write_timeout: "30s", idle_timeout: "60s"
//   - rate_per_sec: 0 (no request rate limit)
type HTTPConfig struct {
	Addr         string `json:"addr,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// RatePerSec limits API requests process-wide. Burst defaults to RatePerSec.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	Burst      int `json:"burst,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/taskplan.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// NotifierConfig controls schedule change notifications.
//
// Defaults: rate_per_sec 1, queue_size 64, send_timeout "10s".
type NotifierConfig struct {
	Enabled bool `json:"enabled"`

	// Telegram bot token (never logged) and target chat.
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`

	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// DigestConfig controls the daily digest job.
//
// Schedule is a 5-field cron expression or descriptor (e.g. "@daily").
// Default: "0 8 * * 1-5" in Timezone (default UTC).
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// DebugConfig controls the profiling/diagnostics listener.
//
// A non-loopback addr requires a token unless allow_insecure is set.
// Default addr: "127.0.0.1:6060".
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}
