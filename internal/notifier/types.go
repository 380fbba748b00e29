package notifier

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Config controls the notification pipeline.
type Config struct {
	Enabled     bool
	QueueSize   int
	RatePerSec  int
	SendTimeout time.Duration
	RetryMax    int
	RetryBase   time.Duration
}

// Sender delivers one message. Implementations must honor ctx.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type HistoryItem struct {
	At   time.Time
	Text string
}
