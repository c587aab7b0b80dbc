package agent

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"remindme/internal/models"
)

// EventKind distinguishes how a local notification reached the user.
type EventKind string

const (
	// EventDelivered fires when the notification is shown while the app is
	// foregrounded.
	EventDelivered EventKind = "delivered"
	// EventTapped fires when the user taps the notification.
	EventTapped EventKind = "tapped"
)

// Event is an inbound notification event the coordinator reacts to.
type Event struct {
	Kind       EventKind
	ReminderID string
	Title      string
}

const eventBuffer = 16

type scheduledEntry struct {
	timer  *time.Timer
	fireAt time.Time
	title  string
}

// Notifier schedules at most one local notification per reminder identity,
// firing at the reminder's due time independent of server connectivity.
// Fired and tapped notifications surface as Events.
type Notifier struct {
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*scheduledEntry
	events  chan Event
}

func NewNotifier(logger *logrus.Logger) *Notifier {
	return &Notifier{
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*scheduledEntry),
		events:  make(chan Event, eventBuffer),
	}
}

// Events returns the stream of delivered/tapped notification events.
func (n *Notifier) Events() <-chan Event {
	return n.events
}

// Schedule arms the notification for a reminder at its due date. Any
// previously scheduled notification for the same identity is cancelled first,
// so one identity never has two pending notifications. Scheduling the same
// due date twice is a no-op.
func (n *Notifier) Schedule(reminder models.Reminder) {
	id := reminder.ID.Hex()
	title := reminder.Title
	fireAt := reminder.DueDate

	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.entries[id]; ok {
		if existing.fireAt.Equal(fireAt) && existing.title == title {
			return
		}
		existing.timer.Stop()
		delete(n.entries, id)
	}

	delay := fireAt.Sub(n.now())
	if delay < 0 {
		return
	}

	entry := &scheduledEntry{
		fireAt: fireAt,
		title:  title,
	}
	entry.timer = time.AfterFunc(delay, func() {
		n.fire(id)
	})
	n.entries[id] = entry

	n.logger.WithFields(logrus.Fields{
		"reminder_id": id,
		"fire_at":     fireAt,
	}).Debug("Local notification scheduled")
}

// Cancel disarms any pending notification for the identity.
func (n *Notifier) Cancel(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if entry, ok := n.entries[id]; ok {
		entry.timer.Stop()
		delete(n.entries, id)
	}
}

// Pending returns the fire time of the armed notification for id, if any.
func (n *Notifier) Pending(id string) (time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entry, ok := n.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return entry.fireAt, true
}

// Tap injects a user tap on the notification for id.
func (n *Notifier) Tap(id string) {
	n.emit(Event{Kind: EventTapped, ReminderID: id})
}

func (n *Notifier) fire(id string) {
	n.mu.Lock()
	entry, ok := n.entries[id]
	if ok {
		delete(n.entries, id)
	}
	n.mu.Unlock()

	if !ok {
		return
	}
	n.emit(Event{Kind: EventDelivered, ReminderID: id, Title: entry.title})
}

func (n *Notifier) emit(event Event) {
	select {
	case n.events <- event:
	default:
		n.logger.WithField("reminder_id", event.ReminderID).Warn("Notification event dropped, buffer full")
	}
}
