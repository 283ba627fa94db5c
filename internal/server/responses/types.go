// Package responses defines API response types used by the relay's HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// WebhookAck acknowledges a webhook delivery.
type WebhookAck struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// InteractionResponse carries the text shown to the user after a button press.
type InteractionResponse struct {
	Text string `json:"text"`
}

// HealthResponse represents the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    float64   `json:"uptime_seconds"`
	StartTime time.Time `json:"start_time"`
}

// EventsResponse wraps the retained event log.
type EventsResponse struct {
	Count  int           `json:"count"`
	Events []event.Event `json:"events"`
}
