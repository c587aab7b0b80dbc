package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindme/internal/models"
)

func TestSweeperRunExpiresImmediately(t *testing.T) {
	svc, _, users, push := newTestService(t)
	userID := newTestUser(t, users, "tok")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := svc.Create(ctx, userID, CreateReminderInput{
		Title:   "Overdue",
		DueDate: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sweeper := NewSweeper(svc, time.Hour, log)

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	// the first tick happens without waiting for the interval
	require.Eventually(t, func() bool {
		return push.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestSweeperTickSurvivesPushFailure(t *testing.T) {
	svc, _, users, push := newTestService(t)
	userID := newTestUser(t, users, "tok")
	ctx := context.Background()

	push.err = assert.AnError

	created, err := svc.Create(ctx, userID, CreateReminderInput{
		Title:   "Still expires",
		DueDate: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	expired, err := svc.ExpireDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	// delivery failed but the transition stands
	got, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, 1, push.count())
}
