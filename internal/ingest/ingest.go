// Package ingest wires the normalizer, event store, deduplicator and
// notification dispatch into the webhook ingestion pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/dedup"
	"git.home.luguber.info/inful/prbridge/internal/event"
	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/logfields"
	"git.home.luguber.info/inful/prbridge/internal/metrics"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

// Status values reported to the webhook caller.
const (
	StatusReceived = "received"
	StatusIgnored  = "ignored"
)

// Outcome is the ingestion result reported back to the webhook handler.
type Outcome struct {
	Status string
	Reason string
}

// Notifier delivers a formatted notification. Satisfied by *slack.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, text, eventType, repo string, prNumber int) slack.DeliveryResult
}

// Publisher mirrors stored events to an external bus. Optional.
type Publisher interface {
	Publish(ctx context.Context, ev *event.Event) error
}

// Ingestor runs the ingestion pipeline: normalize, append, dedup check and
// detached notification dispatch.
type Ingestor struct {
	normalizer *event.Normalizer
	store      eventstore.Store
	dedup      *dedup.Deduplicator
	notifier   Notifier
	publisher  Publisher
	recorder   metrics.Recorder
	logger     *slog.Logger

	dispatches sync.WaitGroup
}

// Option configures optional Ingestor collaborators.
type Option func(*Ingestor)

// WithPublisher attaches an event bus publisher for fanout.
func WithPublisher(p Publisher) Option {
	return func(i *Ingestor) { i.publisher = p }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(i *Ingestor) { i.recorder = r }
}

// NewIngestor constructs the ingestion pipeline.
func NewIngestor(normalizer *event.Normalizer, store eventstore.Store, dd *dedup.Deduplicator, notifier Notifier, logger *slog.Logger, opts ...Option) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	ing := &Ingestor{
		normalizer: normalizer,
		store:      store,
		dedup:      dd,
		notifier:   notifier,
		recorder:   metrics.NoopRecorder{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest processes one webhook delivery. The returned error means the caller
// should fail the request (malformed payload or a storage fault); a filtered
// event is not an error, it comes back as an "ignored" Outcome.
func (i *Ingestor) Ingest(ctx context.Context, payload []byte, eventType string) (*Outcome, error) {
	res, err := i.normalizer.Normalize(payload, eventType)
	if err != nil {
		return nil, err
	}

	ev := res.Event
	i.recorder.IncEventReceived(ev.EventType)

	if res.Decision == event.Drop {
		i.recorder.IncEventIgnored(ev.EventType, res.Code)
		i.logger.Info("Skipping webhook event",
			logfields.EventType(ev.EventType),
			logfields.Action(ev.Action),
			slog.String("reason", res.Reason))
		return &Outcome{Status: StatusIgnored, Reason: res.Reason}, nil
	}

	if err := i.store.Append(ctx, ev); err != nil {
		return nil, err
	}
	i.recorder.IncEventStored(ev.EventType)

	if i.publisher != nil {
		if err := i.publisher.Publish(ctx, ev); err != nil {
			// Fanout is best-effort: the event is already durable.
			i.logger.Warn("Event fanout failed",
				logfields.EventType(ev.EventType),
				logfields.Error(err))
		}
	}

	if res.Decision == event.Store {
		i.logger.Info("Event recorded without notification",
			logfields.EventType(ev.EventType),
			logfields.Action(ev.Action),
			slog.String("reason", res.Reason))
		return &Outcome{Status: StatusReceived, Reason: res.Reason}, nil
	}

	if ev.IsPullRequest() && !i.dedup.MarkAndCheck(ev.PRNumber, ev.Action) {
		i.recorder.IncNotification(metrics.ResultSuppressed)
		i.logger.Info("Duplicate delivery, notification suppressed",
			logfields.PRNumber(ev.PRNumber),
			logfields.Action(ev.Action))
		return &Outcome{Status: StatusReceived, Reason: "duplicate delivery"}, nil
	}

	i.dispatchDetached(ctx, ev)
	return &Outcome{Status: StatusReceived}, nil
}

// dispatchDetached sends the notification in the background so a slow Slack
// endpoint never delays the webhook response. The goroutine carries its own
// error boundary.
func (i *Ingestor) dispatchDetached(ctx context.Context, ev *event.Event) {
	detached := context.WithoutCancel(ctx)
	i.dispatches.Add(1)
	go func() {
		defer i.dispatches.Done()
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("Panic during notification dispatch",
					slog.Any("panic", r),
					logfields.EventType(ev.EventType))
			}
		}()

		start := time.Now()
		result := i.notifier.Dispatch(detached, Summary(ev), ev.EventType, ev.Repository.FullName, ev.PRNumber)
		i.recorder.ObserveNotifyDuration(time.Since(start))
		if result.OK {
			i.recorder.IncNotification(metrics.ResultSuccess)
			i.logger.Info("Notification delivered",
				logfields.EventType(ev.EventType),
				logfields.Repository(ev.Repository.FullName))
			return
		}
		i.recorder.IncNotification(metrics.ResultFailure)
		i.logger.Error("Notification delivery failed",
			logfields.EventType(ev.EventType),
			logfields.Repository(ev.Repository.FullName),
			slog.String("detail", result.Detail))
	}()
}

// Wait blocks until all detached dispatches have finished. Used during
// shutdown so in-flight notifications are not cut off.
func (i *Ingestor) Wait() {
	i.dispatches.Wait()
}

// Summary renders the notification text for an event.
func Summary(ev *event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 New GitHub event: %s(%s) on repository: %s\n", ev.EventType, ev.Action, ev.Repository.FullName)
	fmt.Fprintf(&b, "- Title: %s\n", ev.Title)
	fmt.Fprintf(&b, "- Description: %s\n", ev.Description)
	fmt.Fprintf(&b, "- Timestamp: %s\n", ev.Timestamp)
	fmt.Fprintf(&b, "- User: %s\n", ev.Sender)
	fmt.Fprintf(&b, "- Base Branch: %s\n", ev.BaseBranch)
	fmt.Fprintf(&b, "- Compare Branch: %s", ev.CompareBranch)
	return b.String()
}
