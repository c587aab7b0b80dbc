package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"remindme/internal/models"
	"remindme/internal/repository"
)

const tokenTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// login responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for absent, malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

type AuthService struct {
	users  repository.UserRepository
	secret []byte
	logger *logrus.Logger
}

func NewAuthService(users repository.UserRepository, secret string, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		logger: logger,
	}
}

// Signup registers a new user and returns a signed access token for it.
func (s *AuthService) Signup(ctx context.Context, email, name, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return "", nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if name == "" {
		return "", nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(password) < 6 {
		return "", nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return "", nil, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return "", nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID.Hex(),
	}).Info("User registered")

	token, err := s.tokenFor(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenFor(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// RegisterPushToken stores the device push token for the user so the expiry
// sweeper can reach the device.
func (s *AuthService) RegisterPushToken(ctx context.Context, userID primitive.ObjectID, pushToken, deviceID string) error {
	if strings.TrimSpace(pushToken) == "" {
		return fmt.Errorf("%w: push token is required", ErrValidation)
	}
	return s.users.SetPushToken(ctx, userID, pushToken, deviceID)
}

func (s *AuthService) tokenFor(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a bearer token and returns the user id it carries.
func (s *AuthService) VerifyToken(tokenString string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, ErrInvalidToken
	}
	hex, ok := claims["user_id"].(string)
	if !ok {
		return primitive.NilObjectID, ErrInvalidToken
	}
	userID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return userID, nil
}
