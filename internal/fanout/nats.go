// Package fanout mirrors stored events onto a NATS JetStream subject so
// other services can consume the webhook feed without hitting the relay.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/prbridge/internal/config"
	"git.home.luguber.info/inful/prbridge/internal/event"
	"git.home.luguber.info/inful/prbridge/internal/logfields"
)

const publishTimeout = 5 * time.Second

// NATSPublisher publishes canonical events to JetStream.
type NATSPublisher struct {
	conn          *nats.Conn
	js            jetstream.JetStream
	subjectPrefix string
}

// NewNATSPublisher connects to NATS and prepares the JetStream context.
func NewNATSPublisher(cfg *config.FanoutConfig) (*NATSPublisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("event fanout is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS fanout initialized",
		logfields.URL(cfg.URL),
		logfields.Subject(cfg.SubjectPrefix))

	return &NATSPublisher{conn: conn, js: js, subjectPrefix: cfg.SubjectPrefix}, nil
}

// Publish sends one event. The subject is <prefix>.<event_type>.
func (p *NATSPublisher) Publish(ctx context.Context, ev *event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, ev.EventType)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published event to NATS",
		logfields.Subject(subject),
		logfields.EventType(ev.EventType),
		logfields.Repository(ev.Repository.FullName))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
