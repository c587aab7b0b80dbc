package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"remindme/internal/models"
	"remindme/internal/repository"
)

const (
	reminderCachePrefix = "reminders:user:"
	reminderCacheTTL    = 30 * time.Second
)

// ErrValidation marks input errors that should surface to the user inline.
var ErrValidation = errors.New("validation failed")

// CreateReminderInput is the accepted shape of a create request. Status is
// not part of it: new reminders always start pending.
type CreateReminderInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    models.Priority
}

type ReminderService struct {
	repo   repository.ReminderRepository
	users  repository.UserRepository
	redis  *redis.Client
	push   PushSender
	logger *logrus.Logger
	now    func() time.Time
}

func NewReminderService(repo repository.ReminderRepository, users repository.UserRepository, redisClient *redis.Client, push PushSender, logger *logrus.Logger) *ReminderService {
	return &ReminderService{
		repo:   repo,
		users:  users,
		redis:  redisClient,
		push:   push,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ReminderService) Create(ctx context.Context, userID primitive.ObjectID, input CreateReminderInput) (*models.Reminder, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if input.DueDate.Before(s.now()) {
		return nil, fmt.Errorf("%w: due date cannot be in the past", ErrValidation)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, priority)
	}

	reminder := &models.Reminder{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Priority:    priority,
		Status:      models.StatusPending,
		CreatedAt:   s.now(),
	}

	if err := s.repo.Insert(ctx, reminder); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"reminder_id": reminder.ID.Hex(),
		"user_id":     userID.Hex(),
		"due_date":    reminder.DueDate,
	}).Info("Reminder created")

	return reminder, nil
}

// List returns the user's reminders sorted by due date, each one
// status-reconciled so an overdue pending reminder is reported expired even
// when the periodic sweep has not run yet.
func (s *ReminderService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error) {
	if cached, ok := s.cachedList(ctx, userID); ok {
		return cached, nil
	}

	reminders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range reminders {
		s.reconcile(ctx, &reminders[i])
	}

	s.cacheList(ctx, userID, reminders)
	return reminders, nil
}

func (s *ReminderService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	reminder, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.reconcile(ctx, reminder)
	return reminder, nil
}

func (s *ReminderService) Update(ctx context.Context, userID, id primitive.ObjectID, update repository.ReminderUpdate) (*models.Reminder, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		update.Title = &title
	}
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, *update.Priority)
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *update.Status)
	}

	reminder, err := s.repo.Update(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, userID)
	s.reconcile(ctx, reminder)

	s.logger.WithFields(logrus.Fields{
		"reminder_id": reminder.ID.Hex(),
		"user_id":     userID.Hex(),
	}).Info("Reminder updated")

	return reminder, nil
}

func (s *ReminderService) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	reminder, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"reminder_id": id.Hex(),
		"user_id":     userID.Hex(),
	}).Info("Reminder deleted")

	return reminder, nil
}

// ExpireDueReminders performs one sweep pass: every reminder with a due date
// in the past that is still pending transitions to expired, with one
// best-effort push per transition. Per-record failures are logged and the
// scan continues. Returns the number of reminders expired.
func (s *ReminderService) ExpireDueReminders(ctx context.Context) (int, error) {
	reminders, err := s.repo.FindDuePending(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query due reminders: %w", err)
	}

	var expired int
	for i := range reminders {
		reminder := &reminders[i]
		changed, err := s.expireAndNotify(ctx, reminder)
		if err != nil {
			s.logger.WithError(err).WithField("reminder_id", reminder.ID.Hex()).Error("Failed to expire reminder")
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// reconcile applies the inline expiry check: pending + overdue means the
// reminder is flipped to expired before the caller sees it. Errors are
// logged only; a failed transition must not fail the read.
func (s *ReminderService) reconcile(ctx context.Context, reminder *models.Reminder) {
	if !reminder.Overdue(s.now()) {
		return
	}
	if _, err := s.expireAndNotify(ctx, reminder); err != nil {
		s.logger.WithError(err).WithField("reminder_id", reminder.ID.Hex()).Error("Failed to reconcile reminder status")
	}
}

// expireAndNotify runs the conditional pending-to-expired transition and, if
// this call won the write, delivers one push notification to the owner's
// device. Push failure never rolls the transition back.
func (s *ReminderService) expireAndNotify(ctx context.Context, reminder *models.Reminder) (bool, error) {
	changed, err := s.repo.ExpireIfPending(ctx, reminder.ID)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	reminder.Status = models.StatusExpired
	s.invalidateCache(ctx, reminder.UserID)

	s.logger.WithFields(logrus.Fields{
		"reminder_id": reminder.ID.Hex(),
		"user_id":     reminder.UserID.Hex(),
	}).Info("Reminder expired")

	s.sendExpiryNotification(ctx, reminder)
	return true, nil
}

func (s *ReminderService) sendExpiryNotification(ctx context.Context, reminder *models.Reminder) {
	user, err := s.users.GetByID(ctx, reminder.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", reminder.UserID.Hex()).Error("Failed to load reminder owner for push")
		return
	}
	if user.PushToken == "" {
		return
	}

	body := fmt.Sprintf("Your reminder %q has expired", reminder.Title)
	data := map[string]string{"reminderId": reminder.ID.Hex()}

	if err := s.push.Send(ctx, user.PushToken, "Reminder Expired", body, data); err != nil {
		s.logger.WithError(err).WithField("reminder_id", reminder.ID.Hex()).Error("Failed to send expiry push")
		return
	}

	s.logger.WithField("reminder_id", reminder.ID.Hex()).Info("Expiry push sent")
}

func (s *ReminderService) cachedList(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, bool) {
	if s.redis == nil {
		return nil, false
	}

	cached, err := s.redis.Get(ctx, reminderCachePrefix+userID.Hex()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("Failed to read reminder cache")
		}
		return nil, false
	}

	var reminders []models.Reminder
	if err := json.Unmarshal([]byte(cached), &reminders); err != nil {
		return nil, false
	}

	// A cached entry that is overdue but still pending must go through the
	// store so the inline expiry check runs.
	now := s.now()
	for i := range reminders {
		if reminders[i].Overdue(now) {
			return nil, false
		}
	}
	return reminders, true
}

func (s *ReminderService) cacheList(ctx context.Context, userID primitive.ObjectID, reminders []models.Reminder) {
	if s.redis == nil {
		return
	}
	remindersJSON, err := json.Marshal(reminders)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, reminderCachePrefix+userID.Hex(), remindersJSON, reminderCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to write reminder cache")
	}
}

func (s *ReminderService) invalidateCache(ctx context.Context, userID primitive.ObjectID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, reminderCachePrefix+userID.Hex()).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate reminder cache")
	}
}
