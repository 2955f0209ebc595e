package main

import (
	"context"
	"fmt"
	"time"

	"gymflow/internal/config"
	"gymflow/internal/logger"

	"github.com/robfig/cron/v3"
)

const (
	jobTimeout         = 5 * time.Minute
	queueGaugeSchedule = "@every 30s"
)

type expiryReminder interface {
	RemindExpiring(ctx context.Context, withinDays int) (int, error)
}

type queueGauge interface {
	QueueLength(ctx context.Context) int64
}

// scheduleJobs registers the periodic work. The returned scheduler is not
// started.
func scheduleJobs(cfg *config.Config, reminders expiryReminder, queue queueGauge) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.ExpiryReminderSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := reminders.RemindExpiring(ctx, cfg.ExpiryReminderDays)
		if err != nil {
			logger.Error("expiry reminder sweep failed", "error", err)
			return
		}
		logger.Info("expiry reminders sent", "count", n, "within_days", cfg.ExpiryReminderDays)
	})
	if err != nil {
		return nil, fmt.Errorf("expiry reminder schedule %q: %w", cfg.ExpiryReminderSchedule, err)
	}

	if _, err := c.AddFunc(queueGaugeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		queue.QueueLength(ctx)
	}); err != nil {
		return nil, err
	}

	return c, nil
}
