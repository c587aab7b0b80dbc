package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sweepBatchSize = 100
	sweepTimeout   = 2 * time.Minute
)

// Sweeper periodically expires overdue pending reminders so server state
// stays consistent with wall-clock time even when no client is connected.
type Sweeper struct {
	reminders *ReminderService
	interval  time.Duration
	logger    *logrus.Logger
}

func NewSweeper(reminders *ReminderService, interval time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		reminders: reminders,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks, sweeping once immediately and then on every interval tick until
// ctx is cancelled. A failed tick is logged and retried on the next one.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("Starting expiry sweeper")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	s.logger.Debug("Checking for overdue reminders...")

	expired, err := s.reminders.ExpireDueReminders(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error processing overdue reminders")
		return
	}

	if expired > 0 {
		s.logger.WithField("expired", expired).Info("Processed overdue reminders")
	}
}
