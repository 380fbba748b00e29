// Package systemd speaks the sd_notify protocol for Type=notify units.
// Every call is a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "taskplan/pkg/logx"
)

// Ready reports startup completion.
func Ready(log logx.Logger) { notify(log, daemon.SdNotifyReady) }

// Stopping reports that shutdown has begun.
func Stopping(log logx.Logger) { notify(log, daemon.SdNotifyStopping) }

// Status sets the free-form unit status line.
func Status(log logx.Logger, status string) { notify(log, "STATUS="+status) }

func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify", logx.String("state", state))
	}
}

// Watchdog pings the systemd watchdog at half the configured interval until
// ctx is done. It returns immediately when WatchdogSec is not set.
func Watchdog(ctx context.Context, log logx.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			notify(log, daemon.SdNotifyWatchdog)
		}
	}
}
