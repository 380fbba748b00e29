package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"

	"taskplan/internal/calendar"
	"taskplan/internal/config"
	"taskplan/internal/digest"
	"taskplan/internal/eventbus"
	"taskplan/internal/notifier"
	"taskplan/internal/observability/pprof"
	"taskplan/internal/planner"
	"taskplan/internal/runtime/supervisor"
	"taskplan/internal/storage"
	"taskplan/internal/transport/httpapi"
	logx "taskplan/pkg/logx"
	"taskplan/pkg/systemd"
)

type App struct {
	cfgm *config.ConfigManager
	boot *config.Config

	log  logx.Logger
	logs *logx.Service

	bus     eventbus.Bus
	store   *storage.Store
	planner *planner.Service
	notif   *notifier.Service
	digest  *digest.Service
	api     *httpapi.Server

	sup     *supervisor.Supervisor
	started time.Time
}

// New loads the config at cfgPath and builds every component without
// starting background work. Close releases storage and log files.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	store, err := storage.Open(mapStorage(cfg), log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()
	plan := planner.New(store, bus, log)

	ncfg, sender, err := mapNotifier(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	notif := notifier.New(ncfg, sender, log)

	a := &App{
		cfgm:    cfgm,
		boot:    cfg,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     bus,
		store:   store,
		planner: plan,
		notif:   notif,
		digest:  digest.New(plan, notif, log),
	}
	a.api = httpapi.New(plan, log, httpapi.Options{
		RatePerSec: cfg.HTTP.RatePerSec,
		Burst:      cfg.HTTP.Burst,
		Health:     store.Ping,
	})
	return a, nil
}

func (a *App) Planner() *planner.Service   { return a.planner }
func (a *App) Digest() *digest.Service     { return a.digest }
func (a *App) Notifier() *notifier.Service { return a.notif }
func (a *App) Logger() logx.Logger         { return a.log }

// Run starts every background component and blocks until ctx is done or a
// fatal component error. It always stops what it started.
func (a *App) Run(ctx context.Context) error {
	a.started = time.Now()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	c := a.sup.Context()

	dcfg, err := mapDigest(a.boot)
	if err != nil {
		return err
	}
	if err := a.digest.Start(c, dcfg); err != nil {
		return fmt.Errorf("digest: %w", err)
	}

	a.sup.Go0("notifier.run", func(c context.Context) { _ = a.notif.Run(c) })
	a.sup.Go0("notifier.watch", func(c context.Context) { _ = a.notif.Watch(c, a.bus) })
	a.sup.Go0("eventbus.log", a.logEvents)
	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		if err := systemd.Watchdog(c, a.log); err != nil {
			a.log.Warn("systemd watchdog disabled", logx.Err(err))
		}
	})

	if d := a.boot.Debug; d != nil && d.Enabled {
		dbg := pprof.New(pprof.Config{Addr: d.ListenAddr(), Token: d.Token, AllowInsecure: d.AllowInsecure}, a.state, a.log)
		a.sup.GoRestart("debug.serve", func(c context.Context) error {
			err := dbg.Run(c)
			if errors.Is(err, pprof.ErrInsecureBind) {
				// not retryable; the rest of the app keeps running
				<-c.Done()
				return nil
			}
			return err
		}, supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	}

	read, write, idle := a.boot.HTTP.Timeouts()
	a.sup.Go("http.serve", func(c context.Context) error {
		return a.api.ListenAndServe(c, httpapi.ListenConfig{
			Addr:         a.boot.HTTP.ListenAddr(),
			ReadTimeout:  read,
			WriteTimeout: write,
			IdleTimeout:  idle,
			OnListen: func(addr net.Addr) {
				systemd.Status(a.log, "serving on "+addr.String())
				systemd.Ready(a.log)
			},
		})
	})

	a.log.Info("app started", logx.String("config", a.cfgm.Path()))
	<-c.Done()
	return a.stop()
}

func (a *App) stop() error {
	systemd.Stopping(a.log)
	a.log.Info("stopping")

	a.digest.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.sup.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("supervised goroutines did not stop in time")
	}
	err := a.sup.Err()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.log.Info("stopped", logx.Duration("uptime", time.Since(a.started)))
	return err
}

// DigestNow builds today's digest in the configured zone without sending it.
func (a *App) DigestNow(ctx context.Context) (digest.Digest, error) {
	dcfg, err := mapDigest(a.boot)
	if err != nil {
		return digest.Digest{}, err
	}
	loc := dcfg.Location
	if loc == nil {
		loc = time.UTC
	}
	projects, err := a.planner.ListProjects(ctx)
	if err != nil {
		return digest.Digest{}, err
	}
	tasks, err := a.planner.ListTasks(ctx, 0)
	if err != nil {
		return digest.Digest{}, err
	}
	return digest.Build(calendar.Today(loc), projects, tasks), nil
}

// Close releases storage and log files. Call after Run returns.
func (a *App) Close() error {
	err := a.store.Close()
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

func (a *App) logEvents(c context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-c.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

type state struct {
	Uptime        string                      `json:"uptime"`
	Goroutines    int                         `json:"goroutines"`
	Supervised    []supervisor.GoroutineStats `json:"supervised"`
	EventsDropped uint64                      `json:"events_dropped"`
	Notifications []notifier.HistoryItem      `json:"notifications"`
	SchemaVersion int                         `json:"schema_version"`
}

func (a *App) state() any {
	v, _ := a.store.UserVersion(context.Background())
	return state{
		Uptime:        time.Since(a.started).Round(time.Second).String(),
		Goroutines:    runtime.NumGoroutine(),
		Supervised:    a.sup.Snapshot(),
		EventsDropped: a.bus.Dropped(),
		Notifications: a.notif.History(),
		SchemaVersion: v,
	}
}
