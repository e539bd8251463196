// Package gateway wraps the external push delivery service. The gateway is
// treated as unreliable: calls carry bounded deadlines and failures are
// classified so the dispatcher can decide between retrying and signalling a
// stale token.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/compose"
	"github.com/eventradar/notify-engine/internal/config"
)

// ErrInvalidToken marks a push destination the gateway reports as invalid or
// expired. The dispatcher does not retry these and emits a stale-token
// signal instead.
var ErrInvalidToken = errors.New("push destination rejected by gateway")

// Sender delivers one composed notification to one push destination.
type Sender interface {
	Send(ctx context.Context, pushDestination string, notification compose.Notification) error
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

type pushRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deep_link"`
}

type pushError struct {
	Error string `json:"error"`
}

func NewClient(cfg config.GatewayConfig, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "push_gateway").Logger(),
	}
}

func (c *Client) Send(ctx context.Context, pushDestination string, notification compose.Notification) error {
	payload, err := json.Marshal(pushRequest{
		Token:    pushDestination,
		Title:    notification.Title,
		Body:     notification.Body,
		DeepLink: notification.DeepLink,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w (status %d)", ErrInvalidToken, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest:
		var gatewayErr pushError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&gatewayErr); decodeErr == nil {
			if gatewayErr.Error == "invalid_token" || gatewayErr.Error == "unregistered" {
				return fmt.Errorf("%w (%s)", ErrInvalidToken, gatewayErr.Error)
			}
		}
		return fmt.Errorf("push gateway rejected request (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
}
