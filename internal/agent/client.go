package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"remindme/internal/models"
)

const clientTimeout = 10 * time.Second

// Client is the reminder API client used by the device agent. All calls carry
// the bearer token obtained from Login or Signup.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

type authResult struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// Signup registers a new account and keeps its token for later calls.
func (c *Client) Signup(ctx context.Context, email, name, password string) error {
	var result authResult
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var result authResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

// RegisterPushToken stores this device's push token server-side so expiry
// pushes can reach it.
func (c *Client) RegisterPushToken(ctx context.Context, pushToken, deviceID string) error {
	return c.do(ctx, http.MethodPut, "/api/auth/push-token", map[string]string{
		"pushToken": pushToken,
		"deviceId":  deviceID,
	}, nil)
}

func (c *Client) ListReminders(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := c.do(ctx, http.MethodGet, "/api/reminders", nil, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (c *Client) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := c.do(ctx, http.MethodGet, "/api/reminders/"+id, nil, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (c *Client) CreateReminder(ctx context.Context, title, description string, dueDate time.Time, priority models.Priority) (*models.Reminder, error) {
	body := map[string]any{
		"title":   title,
		"dueDate": dueDate,
	}
	if description != "" {
		body["description"] = description
	}
	if priority != "" {
		body["priority"] = priority
	}

	var reminder models.Reminder
	if err := c.do(ctx, http.MethodPost, "/api/reminders", body, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

// UpdateReminder sends a partial update. Fields must stay within the server's
// allowed PATCH set.
func (c *Client) UpdateReminder(ctx context.Context, id string, fields map[string]any) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := c.do(ctx, http.MethodPatch, "/api/reminders/"+id, fields, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

// MarkCompleted reconciles a fired local notification with server state.
func (c *Client) MarkCompleted(ctx context.Context, id string) error {
	_, err := c.UpdateReminder(ctx, id, map[string]any{
		"status":    models.StatusCompleted,
		"completed": true,
	})
	return err
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/reminders/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error (status %d)", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
