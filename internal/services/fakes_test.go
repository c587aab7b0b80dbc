package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"remindme/internal/models"
	"remindme/internal/repository"
)

type memReminderRepo struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{items: make(map[primitive.ObjectID]models.Reminder)}
}

func (m *memReminderRepo) Insert(_ context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reminder.ID.IsZero() {
		reminder.ID = primitive.NewObjectID()
	}
	m.items[reminder.ID] = *reminder
	return nil
}

func (m *memReminderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reminder
	for _, r := range m.items {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memReminderRepo) GetByID(_ context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memReminderRepo) Update(_ context.Context, userID, id primitive.ObjectID, update repository.ReminderUpdate) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if update.Title != nil {
		r.Title = *update.Title
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if update.DueDate != nil {
		r.DueDate = *update.DueDate
	}
	if update.Priority != nil {
		r.Priority = *update.Priority
	}
	if update.Completed != nil {
		r.Completed = *update.Completed
	}
	if update.Status != nil {
		r.Status = *update.Status
	}
	m.items[id] = r
	return &r, nil
}

func (m *memReminderRepo) Delete(_ context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	delete(m.items, id)
	return &r, nil
}

func (m *memReminderRepo) FindDuePending(_ context.Context, now time.Time, limit int64) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reminder
	for _, r := range m.items {
		if r.Status == models.StatusPending && r.DueDate.Before(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memReminderRepo) ExpireIfPending(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.Status != models.StatusPending {
		return false, nil
	}
	r.Status = models.StatusExpired
	m.items[id] = r
	return true, nil
}

func (m *memReminderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[primitive.ObjectID]models.User)}
}

func (m *memUserRepo) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) SetPushToken(_ context.Context, id primitive.ObjectID, token, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PushToken = token
	u.DeviceID = deviceID
	m.users[id] = u
	return nil
}

type pushAttempt struct {
	token string
	title string
	body  string
	data  map[string]string
}

type fakePush struct {
	mu       sync.Mutex
	attempts []pushAttempt
	err      error
}

func (f *fakePush) Send(_ context.Context, token, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, pushAttempt{token: token, title: title, body: body, data: data})
	return f.err
}

func (f *fakePush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakePush) last() pushAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[len(f.attempts)-1]
}
