package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/adapters/telegram"
	"github.com/selivandex/regime-watch/internal/transport"
	"github.com/selivandex/regime-watch/pkg/logger"
)

// degradedMonitor alerts once on each transition into the degraded state
type degradedMonitor struct {
	tm       *transport.Manager
	notifier *telegram.Notifier
	alerted  bool
}

func newDegradedMonitor(tm *transport.Manager, notifier *telegram.Notifier) *degradedMonitor {
	return &degradedMonitor{tm: tm, notifier: notifier}
}

func (d *degradedMonitor) Name() string {
	return "degraded-monitor"
}

func (d *degradedMonitor) Run(ctx context.Context) error {
	degraded := d.tm.Degraded()

	if degraded && !d.alerted {
		d.alerted = true
		logger.Error("transport degraded: both push and poll paths failing")
		if d.notifier != nil {
			if err := d.notifier.SendDegraded(); err != nil {
				logger.Warn("failed to send degraded alert", zap.Error(err))
			}
		}
	}

	if !degraded && d.alerted {
		d.alerted = false
		logger.Info("transport recovered from degraded state")
	}

	return nil
}
