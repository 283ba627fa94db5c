// Package tools exposes the relay's capabilities as text-returning
// operations. Every tool converts failures into a descriptive string so a
// caller never has to handle a Go error.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

// Gateway is the subset of the GitHub client the tools need.
type Gateway interface {
	MergePullRequest(ctx context.Context, repo string, prNumber int) github.Result
	ClosePullRequest(ctx context.Context, repo string, prNumber int) github.Result
	GetPullRequest(ctx context.Context, repo string, prNumber int) (*github.PRDetail, error)
}

// Notifier delivers a notification to the configured channel.
type Notifier interface {
	Dispatch(ctx context.Context, text, eventType, repo string, prNumber int) slack.DeliveryResult
}

// Toolbox bundles the components the tools operate on.
type Toolbox struct {
	store    eventstore.Store
	gateway  Gateway
	notifier Notifier
	location *time.Location
}

// NewToolbox constructs the tool surface. displayTZ falls back to UTC when
// it does not name a valid location.
func NewToolbox(store eventstore.Store, gateway Gateway, notifier Notifier, displayTZ string) *Toolbox {
	loc, err := time.LoadLocation(displayTZ)
	if err != nil {
		loc = time.UTC
	}
	return &Toolbox{store: store, gateway: gateway, notifier: notifier, location: loc}
}

// GetRecentEvents returns the retained event log as indented JSON.
func (t *Toolbox) GetRecentEvents(ctx context.Context) string {
	events, err := t.store.List(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to read events: %v", err)
	}
	if len(events) == 0 {
		return "[]"
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Sprintf("Failed to encode events: %v", err)
	}
	return string(data)
}

// GetRepositoryStatus returns basic repository info and a per-type count
// summary of recent events.
func (t *Toolbox) GetRepositoryStatus(ctx context.Context) string {
	summary, err := eventstore.Summarize(ctx, t.store)
	if err != nil {
		return fmt.Sprintf("Failed to summarize events: %v", err)
	}
	if summary.Total == 0 {
		return "No repository events available."
	}

	types := make([]string, 0, len(summary.CountsByType))
	for et := range summary.CountsByType {
		types = append(types, et)
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, et := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", et, summary.CountsByType[et]))
	}

	repo := summary.Repository
	if repo == "" {
		repo = "Unknown"
	}
	owner := summary.Owner
	if owner == "" {
		owner = "Unknown"
	}
	return fmt.Sprintf("Repository: %s (owner: %s)\nTotal events: %d (%s)\nMost recent event: %s by %s",
		repo, owner, summary.Total, strings.Join(parts, ", "),
		summary.MostRecentType, summary.MostRecentSender)
}

// SummarizeLatestEvent renders the most recent event as a short report.
func (t *Toolbox) SummarizeLatestEvent(ctx context.Context) string {
	latest, err := t.store.Latest(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to read events: %v", err)
	}
	if latest == nil {
		return "No GitHub events found."
	}

	formatted := latest.Timestamp
	if ts, parseErr := time.Parse(time.RFC3339, latest.Timestamp); parseErr == nil {
		formatted = ts.In(t.location).Format("2006-01-02 15:04:05 MST")
	}

	return fmt.Sprintf("# Event: %s\nRepository: %s\nTitle: %s\nDescription: %s\nTimestamp: %s\nSource: %s",
		latest.EventType, latest.Repository.FullName, latest.Title, latest.Description, formatted, latest.Sender)
}

// GetWorkflowStatus reports the latest status of a GitHub Actions workflow
// whose name contains the given string (case-insensitive).
func (t *Toolbox) GetWorkflowStatus(ctx context.Context, workflowName string) string {
	events, err := t.store.List(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to read events: %v", err)
	}

	needle := strings.ToLower(workflowName)
	for i := len(events) - 1; i >= 0; i-- {
		wf := events[i].Workflow
		if wf == nil || !strings.Contains(strings.ToLower(wf.Name), needle) {
			continue
		}
		status := wf.Conclusion
		if status == "" {
			status = wf.Status
		}
		return fmt.Sprintf("workflow '%s' status: %s", wf.Name, status)
	}
	return fmt.Sprintf("No recent status found for workflow: %s", workflowName)
}

// SendNotification delivers a message to the configured channel.
func (t *Toolbox) SendNotification(ctx context.Context, message, eventType, repo string, prNumber int) string {
	return t.notifier.Dispatch(ctx, message, eventType, repo, prNumber).Detail
}

// MergePullRequest merges a PR and reports the outcome as text.
func (t *Toolbox) MergePullRequest(ctx context.Context, repo string, prNumber int) string {
	return t.gateway.MergePullRequest(ctx, repo, prNumber).Detail
}

// ClosePullRequest closes a PR without merging and reports the outcome.
func (t *Toolbox) ClosePullRequest(ctx context.Context, repo string, prNumber int) string {
	return t.gateway.ClosePullRequest(ctx, repo, prNumber).Detail
}

// GetPullRequestDetails fetches PR details and returns them as JSON.
func (t *Toolbox) GetPullRequestDetails(ctx context.Context, repo string, prNumber int) string {
	detail, err := t.gateway.GetPullRequest(ctx, repo, prNumber)
	if err != nil {
		return fmt.Sprintf("Failed to get PR detail: %v", err)
	}
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return fmt.Sprintf("Failed to encode PR detail: %v", err)
	}
	return string(data)
}
