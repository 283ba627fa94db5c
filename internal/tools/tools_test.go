package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prbridge/internal/event"
	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

type fakeGateway struct {
	detail *github.PRDetail
	err    error
}

func (f *fakeGateway) MergePullRequest(_ context.Context, repo string, prNumber int) github.Result {
	return github.Result{OK: true, Detail: fmt.Sprintf("Successfully merged PR #%d in %s.", prNumber, repo)}
}

func (f *fakeGateway) ClosePullRequest(_ context.Context, repo string, prNumber int) github.Result {
	return github.Result{OK: true, Detail: fmt.Sprintf("Closed pull request #%d in %s", prNumber, repo)}
}

func (f *fakeGateway) GetPullRequest(_ context.Context, _ string, _ int) (*github.PRDetail, error) {
	return f.detail, f.err
}

type fakeNotifier struct {
	lastText string
}

func (f *fakeNotifier) Dispatch(_ context.Context, text, _, _ string, _ int) slack.DeliveryResult {
	f.lastText = text
	return slack.DeliveryResult{OK: true, Detail: "message sent to Slack"}
}

func newToolbox(t *testing.T) (*Toolbox, eventstore.Store) {
	t.Helper()
	store, err := eventstore.NewFileStore(filepath.Join(t.TempDir(), "events.json"), eventstore.DefaultCapacity)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewToolbox(store, &fakeGateway{detail: &github.PRDetail{Number: 7, Merged: true}}, &fakeNotifier{}, "UTC"), store
}

func appendEvent(t *testing.T, store eventstore.Store, ev event.Event) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), &ev))
}

func TestGetRecentEventsEmpty(t *testing.T) {
	tb, _ := newToolbox(t)
	require.Equal(t, "[]", tb.GetRecentEvents(context.Background()))
}

func TestGetRecentEventsJSON(t *testing.T) {
	tb, store := newToolbox(t)
	appendEvent(t, store, event.Event{EventType: "push", Repository: event.Repository{FullName: "acme/widgets"}})

	out := tb.GetRecentEvents(context.Background())
	require.Contains(t, out, `"event_type": "push"`)
	require.Contains(t, out, "acme/widgets")
}

func TestGetRepositoryStatus(t *testing.T) {
	tb, store := newToolbox(t)
	appendEvent(t, store, event.Event{EventType: "push", Repository: event.Repository{FullName: "acme/widgets", Owner: "acme"}, Sender: "octocat"})
	appendEvent(t, store, event.Event{EventType: "pull_request", Repository: event.Repository{FullName: "acme/widgets", Owner: "acme"}, Sender: "hubot"})

	out := tb.GetRepositoryStatus(context.Background())
	require.Contains(t, out, "Repository: acme/widgets (owner: acme)")
	require.Contains(t, out, "Total events: 2 (pull_request: 1, push: 1)")
	require.Contains(t, out, "Most recent event: pull_request by hubot")
}

func TestGetRepositoryStatusEmpty(t *testing.T) {
	tb, _ := newToolbox(t)
	require.Equal(t, "No repository events available.", tb.GetRepositoryStatus(context.Background()))
}

func TestSummarizeLatestEvent(t *testing.T) {
	tb, store := newToolbox(t)
	ts := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC).Format(time.RFC3339)
	appendEvent(t, store, event.Event{
		Timestamp:   ts,
		EventType:   "pull_request",
		Repository:  event.Repository{FullName: "acme/widgets"},
		Title:       "Add feature",
		Description: "Details",
		Sender:      "octocat",
	})

	out := tb.SummarizeLatestEvent(context.Background())
	require.Contains(t, out, "# Event: pull_request")
	require.Contains(t, out, "Repository: acme/widgets")
	require.Contains(t, out, "2025-03-14 09:30:00 UTC")
	require.Contains(t, out, "Source: octocat")
}

func TestSummarizeLatestEventEmpty(t *testing.T) {
	tb, _ := newToolbox(t)
	require.Equal(t, "No GitHub events found.", tb.SummarizeLatestEvent(context.Background()))
}

func TestGetWorkflowStatus(t *testing.T) {
	tb, store := newToolbox(t)
	appendEvent(t, store, event.Event{
		EventType: "workflow_job",
		Workflow:  &event.Workflow{Name: "CI Build", Status: "completed", Conclusion: "success"},
	})
	appendEvent(t, store, event.Event{
		EventType: "workflow_run",
		Workflow:  &event.Workflow{Name: "Deploy", Status: "in_progress"},
	})

	require.Equal(t, "workflow 'CI Build' status: success", tb.GetWorkflowStatus(context.Background(), "ci build"))
	require.Equal(t, "workflow 'Deploy' status: in_progress", tb.GetWorkflowStatus(context.Background(), "deploy"))
	require.Equal(t, "No recent status found for workflow: release", tb.GetWorkflowStatus(context.Background(), "release"))
}

func TestPullRequestTools(t *testing.T) {
	tb, _ := newToolbox(t)

	require.Equal(t, "Successfully merged PR #7 in acme/widgets.", tb.MergePullRequest(context.Background(), "acme/widgets", 7))
	require.Equal(t, "Closed pull request #7 in acme/widgets", tb.ClosePullRequest(context.Background(), "acme/widgets", 7))

	detail := tb.GetPullRequestDetails(context.Background(), "acme/widgets", 7)
	require.Contains(t, detail, `"merged": true`)
}

func TestSendNotification(t *testing.T) {
	tb, _ := newToolbox(t)
	require.Equal(t, "message sent to Slack", tb.SendNotification(context.Background(), "hello", "push", "acme/widgets", 0))
}
