// Package digest periodically posts a repository activity summary to the
// notification channel.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/logfields"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

// Notifier delivers the digest text.
type Notifier interface {
	Dispatch(ctx context.Context, text, eventType, repo string, prNumber int) slack.DeliveryResult
}

// Scheduler wraps gocron for the periodic status digest.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     eventstore.Store
	notifier  Notifier
	interval  time.Duration
}

// NewScheduler creates a digest scheduler posting every interval.
func NewScheduler(store eventstore.Store, notifier Notifier, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, store: store, notifier: notifier, interval: interval}, nil
}

// Start registers the digest job and begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.postDigest, ctx),
		gocron.WithName("status-digest"),
	)
	if err != nil {
		return fmt.Errorf("failed to create digest job: %w", err)
	}

	slog.Info("Starting digest scheduler", slog.Duration("interval", s.interval))
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping digest scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) postDigest(ctx context.Context) {
	status, err := eventstore.Status(ctx, s.store)
	if err != nil {
		slog.Error("Failed to build status digest", logfields.Error(err))
		return
	}
	if status.Repository == "" {
		slog.Debug("No events recorded, skipping digest")
		return
	}

	text := Render(status)
	result := s.notifier.Dispatch(ctx, text, "digest", status.Repository, 0)
	if !result.OK {
		slog.Error("Failed to deliver status digest",
			logfields.Repository(status.Repository),
			slog.String("detail", result.Detail))
		return
	}
	slog.Info("Status digest delivered", logfields.Repository(status.Repository))
}

// Render formats a status summary as the digest message.
func Render(status eventstore.StatusSummary) string {
	return fmt.Sprintf(
		"📊 Activity digest for %s\n- Pull request events: %d\n- Push events: %d\n- Issue events: %d\n- Latest: %s(%s) at %s",
		status.Repository,
		status.OpenPRCount,
		status.PushCount,
		status.IssueCount,
		status.LatestType,
		status.LatestAction,
		status.LatestTimestamp,
	)
}
