package app

import (
	"context"
	"slices"
	"strings"

	"taskplan/internal/config"
	logx "taskplan/pkg/logx"
)

// restartOnly lists sections that are read once at startup.
var restartOnly = []string{"http", "storage", "debug"}

func (a *App) reloadLoop(c context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					drained = true
				}
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// applyConfig applies the live-reloadable sections of next.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	for _, s := range sections {
		if slices.Contains(restartOnly, s) {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	if slices.Contains(sections, "logging") {
		a.logs.Apply(mapLogging(next))
	}

	if slices.Contains(sections, "notifier") {
		if ncfg, sender, err := mapNotifier(next); err != nil {
			a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
		} else {
			a.notif.Apply(ncfg, sender)
		}
	}

	if slices.Contains(sections, "digest") {
		if dcfg, err := mapDigest(next); err != nil {
			a.log.Warn("invalid digest config; keeping previous", logx.Err(err))
		} else if err := a.digest.Apply(dcfg); err != nil {
			a.log.Warn("digest reschedule failed", logx.Err(err))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
