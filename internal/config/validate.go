package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "taskplan/pkg/logx"
)

const (
	DefaultHTTPAddr       = "127.0.0.1:8000"
	DefaultStorageDriver  = "sqlite"
	DefaultStoragePath    = "./data/taskplan.db"
	DefaultDigestSchedule = "0 8 * * 1-5"
	DefaultDebugAddr      = "127.0.0.1:6060"
)

// cronParser accepts the 5-field standard format and descriptors like "@daily".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks cfg and reports every problem found, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	_, err := ParseDurationField("http.read_timeout", cfg.HTTP.ReadTimeout)
	add(err)
	_, err = ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout)
	add(err)
	_, err = ParseDurationField("http.idle_timeout", cfg.HTTP.IdleTimeout)
	add(err)
	if cfg.HTTP.RatePerSec < 0 || cfg.HTTP.Burst < 0 {
		add(errors.New("http: rate_per_sec and burst must be >= 0"))
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.ParseLevel(lvl); !ok {
			add(fmt.Errorf("logging.level: unknown level %q", lvl))
		}
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		add(errors.New("logging.file.path: required when file logging is enabled"))
	}

	switch d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d {
	case "", DefaultStorageDriver:
	default:
		add(fmt.Errorf("storage.driver: unsupported driver %q", cfg.Storage.Driver))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	if n := cfg.Notifier; n != nil {
		if n.Enabled {
			if strings.TrimSpace(n.Token) == "" {
				add(errors.New("notifier.token: required when notifier is enabled"))
			}
			if n.ChatID == 0 {
				add(errors.New("notifier.chat_id: required when notifier is enabled"))
			}
		}
		if n.RatePerSec < 0 || n.QueueSize < 0 {
			add(errors.New("notifier: rate_per_sec and queue_size must be >= 0"))
		}
		_, err = ParseDurationField("notifier.send_timeout", n.SendTimeout)
		add(err)
	}

	if d := cfg.Digest; d != nil {
		if _, err := cronParser.Parse(d.ScheduleOrDefault()); err != nil {
			add(fmt.Errorf("digest.schedule: %w", err))
		}
		if _, err := d.Location(); err != nil {
			add(fmt.Errorf("digest.timezone: %w", err))
		}
	}

	if d := cfg.Debug; d != nil && d.Enabled {
		if _, _, err := net.SplitHostPort(d.ListenAddr()); err != nil {
			add(fmt.Errorf("debug.addr: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (h HTTPConfig) ListenAddr() string {
	if a := strings.TrimSpace(h.Addr); a != "" {
		return a
	}
	return DefaultHTTPAddr
}

// Timeouts returns read, write and idle timeouts with defaults applied.
// Call after Validate.
func (h HTTPConfig) Timeouts() (read, write, idle time.Duration) {
	read, _ = ParseDurationOrDefault("http.read_timeout", h.ReadTimeout, 10*time.Second)
	write, _ = ParseDurationOrDefault("http.write_timeout", h.WriteTimeout, 30*time.Second)
	idle, _ = ParseDurationOrDefault("http.idle_timeout", h.IdleTimeout, 60*time.Second)
	return read, write, idle
}

func (s StorageConfig) DriverOrDefault() string {
	if d := strings.ToLower(strings.TrimSpace(s.Driver)); d != "" {
		return d
	}
	return DefaultStorageDriver
}

func (s StorageConfig) PathOrDefault() string {
	if p := strings.TrimSpace(s.Path); p != "" {
		return p
	}
	return DefaultStoragePath
}

func (s StorageConfig) BusyTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("storage.busy_timeout", s.BusyTimeout, 5*time.Second)
	return d
}

func (d DigestConfig) ScheduleOrDefault() string {
	if s := strings.TrimSpace(d.Schedule); s != "" {
		return s
	}
	return DefaultDigestSchedule
}

// Location resolves Timezone; empty means UTC.
func (d DigestConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(d.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

func (d DebugConfig) ListenAddr() string {
	if a := strings.TrimSpace(d.Addr); a != "" {
		return a
	}
	return DefaultDebugAddr
}
