package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskplan/internal/calendar"
	"taskplan/internal/schedule"
	"taskplan/internal/storage"
	logx "taskplan/pkg/logx"
)

// Source lists every project and every task (projectID 0).
type Source interface {
	ListProjects(ctx context.Context) ([]storage.Project, error)
	ListTasks(ctx context.Context, projectID int64) ([]schedule.Task, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Config struct {
	Enabled  bool
	Schedule string // 5-field cron or descriptor
	Location *time.Location
}

const runTimeout = 30 * time.Second

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Service runs the digest on a cron schedule.
type Service struct {
	src    Source
	notify Notifier
	log    logx.Logger
	now    func() time.Time

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
	ctx context.Context
}

func New(src Source, notify Notifier, log logx.Logger) *Service {
	return &Service{src: src, notify: notify, log: log.With(logx.String("comp", "digest")), now: time.Now}
}

// Start registers the cron job. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.cfg = cfg
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}
	loc := s.cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		return errors.New("digest schedule is empty")
	}
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, s.runScheduled); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("digest scheduled", logx.String("schedule", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}

// Stop waits for a running digest to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Apply restarts the cron with cfg when the schedule, zone or enablement changed.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	same := s.cfg.Enabled == cfg.Enabled &&
		strings.TrimSpace(s.cfg.Schedule) == strings.TrimSpace(cfg.Schedule) &&
		s.cfg.Location.String() == cfg.Location.String()
	s.cfg = cfg
	if same || s.ctx == nil {
		return nil
	}
	s.stopLocked()
	return s.startLocked()
}

func (s *Service) runScheduled() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil || parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("digest failed", logx.Err(err))
	}
}

// Today is the current date in the digest's time zone.
func (s *Service) Today() calendar.Date {
	s.mu.Lock()
	loc := s.cfg.Location
	s.mu.Unlock()
	if loc == nil {
		loc = time.UTC
	}
	return calendar.FromTime(s.now().In(loc))
}

// RunOnce builds today's digest, logs it and hands it to the notifier.
func (s *Service) RunOnce(ctx context.Context) (Digest, error) {
	projects, err := s.src.ListProjects(ctx)
	if err != nil {
		return Digest{}, err
	}
	tasks, err := s.src.ListTasks(ctx, 0)
	if err != nil {
		return Digest{}, err
	}
	d := Build(s.Today(), projects, tasks)
	s.log.Info("digest built",
		logx.Stringer("date", d.Date),
		logx.Int("starting", len(d.StartingToday)),
		logx.Int("ending", len(d.EndingToday)),
		logx.Int("overdue", len(d.Overdue)),
	)
	if s.notify != nil {
		if err := s.notify.Notify(ctx, d.Render()); err != nil {
			return d, err
		}
	}
	return d, nil
}
