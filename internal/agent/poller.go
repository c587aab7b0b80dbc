package agent

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"remindme/internal/models"
)

// Poller keeps the visible reminder list fresh while the list view is
// focused. Focus starts a fetch loop, Blur cancels it; there is never more
// than one loop per poller. Each successful fetch replaces the list wholesale
// through OnUpdate. A failed fetch leaves the previous list standing, reports
// through OnError and the loop keeps ticking.
type Poller struct {
	client   *Client
	interval time.Duration
	logger   *logrus.Logger

	OnUpdate func([]models.Reminder)
	OnError  func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewPoller(client *Client, interval time.Duration, logger *logrus.Logger) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Focus starts polling. Calling Focus on an already focused poller is a
// no-op. The loop also stops when ctx is cancelled.
func (p *Poller) Focus(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	go p.loop(loopCtx)
}

// Blur stops polling until the next Focus.
func (p *Poller) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Focused reports whether a poll loop is currently running.
func (p *Poller) Focused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	reminders, err := p.client.ListReminders(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.WithError(err).Warn("Failed to refresh reminders")
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}

	if p.OnUpdate != nil {
		p.OnUpdate(reminders)
	}
}
