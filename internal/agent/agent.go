package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"remindme/internal/models"
)

// Agent ties the API client, the list poller and the local notification
// scheduler together on the device side. It owns the reconciliation path:
// when a local notification fires or is tapped, the reminder is marked
// completed on the server.
type Agent struct {
	Client   *Client
	Poller   *Poller
	Notifier *Notifier

	// NavigateBack is invoked after a tapped notification has been
	// reconciled, mirroring the go-back-or-home navigation of the UI.
	NavigateBack func()

	logger *logrus.Logger
}

func New(client *Client, pollInterval time.Duration, logger *logrus.Logger) *Agent {
	return &Agent{
		Client:   client,
		Poller:   NewPoller(client, pollInterval, logger),
		Notifier: NewNotifier(logger),
		logger:   logger,
	}
}

// Run consumes notification events until ctx is cancelled. Each event issues
// a mark-completed update for the carried reminder id; a tap additionally
// triggers NavigateBack. Reconciliation failures are logged and never stop
// the loop.
func (a *Agent) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-a.Notifier.Events():
			a.handleEvent(ctx, event)
		}
	}
}

func (a *Agent) handleEvent(ctx context.Context, event Event) {
	a.logger.WithFields(logrus.Fields{
		"reminder_id": event.ReminderID,
		"kind":        event.Kind,
	}).Info("Notification event")

	if err := a.Client.MarkCompleted(ctx, event.ReminderID); err != nil {
		a.logger.WithError(err).WithField("reminder_id", event.ReminderID).Error("Failed to mark reminder completed")
	}

	if event.Kind == EventTapped && a.NavigateBack != nil {
		a.NavigateBack()
	}
}

// Save validates and persists a reminder, then (re)schedules its local
// notification. An empty id creates, otherwise the existing reminder is
// updated. Validation runs against the wall clock at submit time.
func (a *Agent) Save(ctx context.Context, id, title, description string, dueDate time.Time, priority models.Priority) (*models.Reminder, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if dueDate.Before(time.Now()) {
		return nil, fmt.Errorf("due date cannot be in the past")
	}

	var (
		reminder *models.Reminder
		err      error
	)
	if id == "" {
		reminder, err = a.Client.CreateReminder(ctx, title, description, dueDate, priority)
	} else {
		fields := map[string]any{
			"title":   title,
			"dueDate": dueDate,
		}
		if description != "" {
			fields["description"] = description
		}
		if priority != "" {
			fields["priority"] = priority
		}
		reminder, err = a.Client.UpdateReminder(ctx, id, fields)
	}
	if err != nil {
		return nil, err
	}

	a.Notifier.Schedule(*reminder)
	return reminder, nil
}

// SyncSchedules reconciles the armed local notifications with a freshly
// polled list: pending future reminders get (re)scheduled, everything else is
// cancelled.
func (a *Agent) SyncSchedules(reminders []models.Reminder) {
	for _, reminder := range reminders {
		if reminder.Status == models.StatusPending && reminder.DueDate.After(time.Now()) {
			a.Notifier.Schedule(reminder)
		} else {
			a.Notifier.Cancel(reminder.ID.Hex())
		}
	}
}
