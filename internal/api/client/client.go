package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
)

const subscriptionPath = "/api/v1/subscription"

// StatusError ответ сервера с кодом вне 2xx
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error
func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// StatusCode возвращает HTTP код ошибки или 0, если это не StatusError
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Session результат входа
type Session struct {
	Token        string              `json:"token"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Username     string              `json:"username"`
	Role         domain.Role         `json:"role"`
	Subscription domain.Subscription `json:"subscription"`
}

// Client HTTP клиент эндпоинтов подписки
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	log        *logger.Logger
}

// Option настраивает клиент
type Option func(*Client)

// WithHTTPClient подменяет http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken задает bearer токен
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger задает логгер
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New создает клиент для baseURL, например http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken меняет токен сессии
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login выполняет вход и сохраняет токен в клиенте
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var session Session
	body := domain.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Token
	return session, nil
}

// GetSubscription читает текущую запись
func (c *Client) GetSubscription(ctx context.Context) (domain.Subscription, error) {
	var sub domain.Subscription
	if err := c.do(ctx, http.MethodGet, subscriptionPath, nil, &sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// CreateSubscription создает подписку
func (c *Client) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (domain.Subscription, error) {
	var sub domain.Subscription
	if err := c.do(ctx, http.MethodPost, subscriptionPath, req, &sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// CancelSubscription отменяет подписку
func (c *Client) CancelSubscription(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, subscriptionPath, nil, nil)
}

// ExpireSubscription помечает подписку истекшей и возвращает запись после операции
func (c *Client) ExpireSubscription(ctx context.Context) (domain.Subscription, error) {
	var sub domain.Subscription
	if err := c.do(ctx, http.MethodPatch, subscriptionPath, nil, &sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &payload) == nil {
			if payload.Error != "" {
				se.Message = payload.Error
			}
			se.Code = payload.Code
		}
		c.log.Debugw("API request failed", "method", method, "path", path, "status", resp.StatusCode, "code", se.Code)
		return se
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: failed to decode response: %w", err)
	}
	return nil
}
