package app

import (
	"time"

	"taskplan/internal/config"
	"taskplan/internal/digest"
	"taskplan/internal/notifier"
	"taskplan/internal/storage"
	logx "taskplan/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorage(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      cfg.Storage.DriverOrDefault(),
		Path:        cfg.Storage.PathOrDefault(),
		BusyTimeout: cfg.Storage.BusyTimeoutOrDefault(),
	}
}

// mapNotifier returns a nil sender when notifications are disabled.
func mapNotifier(cfg *config.Config) (notifier.Config, notifier.Sender, error) {
	n := cfg.Notifier
	if n == nil {
		return notifier.Config{}, nil, nil
	}
	timeout, err := config.ParseDurationOrDefault("notifier.send_timeout", n.SendTimeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, nil, err
	}
	nc := notifier.Config{
		Enabled:     n.Enabled,
		QueueSize:   n.QueueSize,
		RatePerSec:  n.RatePerSec,
		SendTimeout: timeout,
		RetryMax:    3,
	}
	if !n.Enabled {
		return nc, nil, nil
	}
	sender, err := notifier.NewTelegram(n.Token, n.ChatID, n.ThreadID)
	if err != nil {
		return notifier.Config{}, nil, err
	}
	return nc, sender, nil
}

func mapDigest(cfg *config.Config) (digest.Config, error) {
	d := cfg.Digest
	if d == nil {
		return digest.Config{}, nil
	}
	loc, err := d.Location()
	if err != nil {
		return digest.Config{}, err
	}
	return digest.Config{Enabled: d.Enabled, Schedule: d.ScheduleOrDefault(), Location: loc}, nil
}
