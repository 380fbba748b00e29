package notifier

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"taskplan/internal/eventbus"
	logx "taskplan/pkg/logx"
)

const historyMax = 100

// Service queues messages and sends them through a Sender.
// It is safe for concurrent use.
type Service struct {
	log logx.Logger

	mu      sync.Mutex
	cfg     Config
	sender  Sender
	limiter *rate.Limiter

	queue chan string

	hmu     sync.Mutex
	history []HistoryItem
}

// New returns a Service. sender may be nil while the notifier is disabled.
// The queue size is fixed here; later Apply calls keep it.
func New(cfg Config, sender Sender, log logx.Logger) *Service {
	cfg = withDefaults(cfg)
	s := &Service{
		log:   log.With(logx.String("comp", "notifier")),
		queue: make(chan string, cfg.QueueSize),
	}
	s.Apply(cfg, sender)
	return s
}

func withDefaults(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return cfg
}

// Apply swaps config and sender at runtime.
func (s *Service) Apply(cfg Config, sender Sender) {
	cfg = withDefaults(cfg)
	s.mu.Lock()
	s.cfg = cfg
	s.sender = sender
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled && s.sender != nil
}

// Notify queues text for delivery. A disabled notifier only logs it.
func (s *Service) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.Enabled() {
		s.log.Info("notification (not sent)", logx.String("text", text))
		return nil
	}
	select {
	case s.queue <- text:
		return nil
	default:
		s.log.Warn("notification dropped", logx.Int("queue_cap", cap(s.queue)))
		return ErrQueueFull
	}
}

// Watch forwards schedule events from bus until ctx is done.
func (s *Service) Watch(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(32, eventbus.TaskCascaded, eventbus.TaskShifted, eventbus.ProjectAutoScheduled)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return ErrStopped
			}
			text, ok := FormatEvent(e)
			if !ok {
				continue
			}
			_ = s.Notify(ctx, text)
		}
	}
}

// Run sends queued messages until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-s.queue:
			s.send(ctx, text)
		}
	}
}

func (s *Service) send(ctx context.Context, text string) {
	s.mu.Lock()
	cfg, sender, lim := s.cfg, s.sender, s.limiter
	s.mu.Unlock()
	if sender == nil || !cfg.Enabled {
		s.log.Info("notification (not sent)", logx.String("text", text))
		return
	}

	attempts := 1 + cfg.RetryMax
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		err := sender.Send(callCtx, text)
		cancel()
		if err == nil {
			s.appendHistory(text)
			return
		}
		s.log.Warn("notification send failed",
			logx.Err(err),
			logx.Int("attempt", attempt),
			logx.Int("max", attempts),
		)
		if attempt == attempts {
			return
		}
		t := time.NewTimer(retryDelay(cfg.RetryBase, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}

// retryDelay is base * 2^(attempt-1) with 0.7..1.3 jitter, capped at 10s.
func retryDelay(base time.Duration, attempt int) time.Duration {
	const maxDelay = 10 * time.Second
	d := base
	for i := 1; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(d, maxDelay)
}

// History returns recently sent messages, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) appendHistory(text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Text: text})
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}
