package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	pushTimeout   = 10 * time.Second
	pushRateLimit = 10 // requests per second against the push gateway
)

// PushSender delivers a best-effort message to a device token. Failures are
// the caller's to log; they must never block a status transition.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

type pushMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// ExpoPushSender sends notifications through the Expo push gateway.
type ExpoPushSender struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewExpoPushSender(url string, logger *logrus.Logger) *ExpoPushSender {
	return &ExpoPushSender{
		url: url,
		httpClient: &http.Client{
			Timeout: pushTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(pushRateLimit), pushRateLimit),
		logger:  logger,
	}
}

// Send posts one push message to the gateway. The token is the destination
// device; data rides along opaquely for the receiving app.
//
// Returns an error if marshaling the request, sending the HTTP request,
// or receiving a non-OK response from the push gateway fails.
func (s *ExpoPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limiter: %w", err)
	}

	message := pushMessage{
		To:    token,
		Sound: "default",
		Title: title,
		Body:  body,
		Data:  data,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway error (status %d)", resp.StatusCode)
	}

	s.logger.WithFields(logrus.Fields{
		"title": title,
	}).Debug("Push message delivered to gateway")

	return nil
}
