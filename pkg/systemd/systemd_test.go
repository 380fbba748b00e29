package systemd

import (
	"context"
	"testing"

	logx "taskplan/pkg/logx"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	Ready(logx.Nop())
	Status(logx.Nop(), "serving")
	Stopping(logx.Nop())

	if err := Watchdog(context.Background(), logx.Nop()); err != nil {
		t.Fatalf("Watchdog = %v", err)
	}
}
