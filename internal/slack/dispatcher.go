package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/prbridge/internal/logfields"
	"git.home.luguber.info/inful/prbridge/internal/retry"
)

const deliveryTimeout = 10 * time.Second

// FailureKind classifies a failed delivery. Retry decisions switch on the
// kind, never on the human-readable detail text.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureConfig
	FailureEncode
	FailureTimeout
	FailureConnError
	FailureHTTPStatus
	FailureCanceled
)

// DeliveryResult reports the outcome of one notification delivery.
// Failure is data, not an error: the caller's broader request succeeds
// regardless.
type DeliveryResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`

	Kind FailureKind `json:"-"`
}

func (r DeliveryResult) String() string { return r.Detail }

// Dispatcher delivers formatted messages to a Slack incoming webhook.
type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
	policy     retry.Policy
	retries    bool
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetryPolicy enables bounded retries with the given backoff policy for
// transport-level failures. Non-2xx responses are never retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
		d.retries = true
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

// NewDispatcher creates a Dispatcher delivering to webhookURL.
func NewDispatcher(webhookURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: deliveryTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch builds the message for (text, eventType, repo, prNumber) and
// posts it. All failure modes are converted into a DeliveryResult; nothing
// propagates to the caller as a fault.
func (d *Dispatcher) Dispatch(ctx context.Context, text, eventType, repo string, prNumber int) DeliveryResult {
	if d.webhookURL == "" {
		return DeliveryResult{OK: false, Kind: FailureConfig, Detail: "slack webhook URL is not configured"}
	}

	msg := BuildMessage(text, eventType, repo, prNumber)
	payload, err := json.Marshal(msg)
	if err != nil {
		return DeliveryResult{OK: false, Kind: FailureEncode, Detail: fmt.Sprintf("failed to encode message: %v", err)}
	}

	deliveryID := uuid.NewString()
	result := d.post(ctx, payload)
	attempt := 0
	for !result.OK && d.retries && d.retryable(result) && attempt < d.policy.MaxRetries {
		attempt++
		delay := d.policy.Delay(attempt)
		d.logger.Warn("retrying Slack delivery",
			logfields.RequestID(deliveryID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("reason", result.Detail))
		select {
		case <-ctx.Done():
			return DeliveryResult{OK: false, Kind: FailureCanceled, Detail: "delivery canceled: " + ctx.Err().Error()}
		case <-time.After(delay):
		}
		result = d.post(ctx, payload)
	}

	if result.OK {
		d.logger.Info("Slack notification delivered",
			logfields.RequestID(deliveryID),
			logfields.EventType(eventType),
			logfields.Repository(repo))
	} else {
		d.logger.Warn("Slack notification failed",
			logfields.RequestID(deliveryID),
			logfields.EventType(eventType),
			logfields.Repository(repo),
			slog.String("reason", result.Detail))
	}
	return result
}

func (d *Dispatcher) post(ctx context.Context, payload []byte) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{OK: false, Kind: FailureConfig, Detail: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return DeliveryResult{OK: false, Kind: FailureTimeout, Detail: "request timed out delivering to Slack"}
		}
		return DeliveryResult{OK: false, Kind: FailureConnError, Detail: fmt.Sprintf("connection error delivering to Slack: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return DeliveryResult{OK: false, Kind: FailureHTTPStatus, Detail: fmt.Sprintf("Slack responded with status %d: %s", resp.StatusCode, string(body))}
	}
	return DeliveryResult{OK: true, Detail: "message sent to Slack"}
}

// retryable reports whether a failure is transport-level. Non-2xx responses
// are never retried.
func (d *Dispatcher) retryable(r DeliveryResult) bool {
	return r.Kind == FailureTimeout || r.Kind == FailureConnError
}
