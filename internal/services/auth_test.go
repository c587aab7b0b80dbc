package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthService(t *testing.T) (*AuthService, *memUserRepo) {
	t.Helper()
	users := newMemUserRepo()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewAuthService(users, "testing-secret", log), users
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, user, err := svc.Signup(ctx, "Anna@Example.com", "Anna", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	userID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	loginToken, loginUser, err := svc.Login(ctx, "anna@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, loginToken)
	assert.Equal(t, user.ID, loginUser.ID)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		userName string
		password string
	}{
		{"empty email", "", "Anna", "hunter22"},
		{"email without at-sign", "not-an-email", "Anna", "hunter22"},
		{"empty name", "anna@example.com", "  ", "hunter22"},
		{"short password", "anna@example.com", "Anna", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Signup(ctx, tt.email, tt.userName, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "anna@example.com", "Anna", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "anna@example.com", "Other", "password")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "anna@example.com", "Anna", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "anna@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// token signed with a different secret
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	other := NewAuthService(newMemUserRepo(), "other-secret", log)
	_, user, err := other.Signup(context.Background(), "b@example.com", "B", "hunter22")
	require.NoError(t, err)
	foreignToken, err := other.tokenFor(user)
	require.NoError(t, err)

	_, err = svc.VerifyToken(foreignToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterPushToken(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	_, user, err := svc.Signup(ctx, "anna@example.com", "Anna", "hunter22")
	require.NoError(t, err)

	err = svc.RegisterPushToken(ctx, user.ID, "", "device-1")
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.RegisterPushToken(ctx, user.ID, "ExponentPushToken[abc]", "device-1")
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", stored.PushToken)
	assert.Equal(t, "device-1", stored.DeviceID)

	err = svc.RegisterPushToken(ctx, primitive.NewObjectID(), "tok", "device-2")
	assert.Error(t, err)
}
