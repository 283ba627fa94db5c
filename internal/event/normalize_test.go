package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer("main", "UTC")
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalize_PullRequestOpened(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{
		"action": "opened",
		"pull_request": {
			"number": 7,
			"title": "Add feature",
			"body": "Adds the feature.",
			"base": {"ref": "main"},
			"head": {"ref": "feature/add"}
		},
		"repository": {"full_name": "acme/widgets", "default_branch": "main", "owner": {"login": "acme"}},
		"sender": {"login": "octocat"}
	}`)

	res, err := n.Normalize(payload, "pull_request")
	require.NoError(t, err)
	require.Equal(t, StoreAndNotify, res.Decision)

	ev := res.Event
	require.Equal(t, "pull_request", ev.EventType)
	require.Equal(t, "opened", ev.Action)
	require.Equal(t, 7, ev.PRNumber)
	require.Equal(t, "Add feature", ev.Title)
	require.Equal(t, "acme/widgets", ev.Repository.FullName)
	require.Equal(t, "acme", ev.Repository.Owner)
	require.Equal(t, "octocat", ev.Sender)
	require.Equal(t, "main", ev.BaseBranch)
	require.Equal(t, "feature/add", ev.CompareBranch)
	require.Equal(t, "2025-06-01T12:00:00Z", ev.Timestamp)
	require.True(t, ev.IsPullRequest())
}

func TestNormalize_PullRequestSynchronizeDropped(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{
		"action": "synchronize",
		"pull_request": {"number": 7, "base": {"ref": "main"}, "head": {"ref": "feature/add"}},
		"repository": {"full_name": "acme/widgets"}
	}`)

	res, err := n.Normalize(payload, "pull_request")
	require.NoError(t, err)
	require.Equal(t, Drop, res.Decision)
	require.Contains(t, res.Reason, "synchronize")
}

func TestNormalize_PullRequestClosedStoredNotNotified(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{
		"action": "closed",
		"pull_request": {"number": 9, "title": "Old PR", "base": {"ref": "main"}, "head": {"ref": "fix/bug"}},
		"repository": {"full_name": "acme/widgets"}
	}`)

	res, err := n.Normalize(payload, "pull_request")
	require.NoError(t, err)
	require.Equal(t, Store, res.Decision)
	require.Equal(t, 9, res.Event.PRNumber)
}

func TestNormalize_PullRequestUnlistedActionDropped(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{
		"action": "labeled",
		"pull_request": {"number": 4, "base": {"ref": "main"}, "head": {"ref": "x"}},
		"repository": {"full_name": "acme/widgets"}
	}`)

	res, err := n.Normalize(payload, "pull_request")
	require.NoError(t, err)
	require.Equal(t, Drop, res.Decision)
}

func TestNormalize_PushBranchFilter(t *testing.T) {
	n := newTestNormalizer(t)

	dev := []byte(`{"ref": "refs/heads/dev", "commits": [{"message": "wip"}], "repository": {"full_name": "acme/widgets"}}`)
	res, err := n.Normalize(dev, "push")
	require.NoError(t, err)
	require.Equal(t, Drop, res.Decision)

	main := []byte(`{"ref": "refs/heads/main", "commits": [{"message": "fix parser"}, {"message": "bump deps"}], "repository": {"full_name": "acme/widgets"}}`)
	res, err = n.Normalize(main, "push")
	require.NoError(t, err)
	require.Equal(t, StoreAndNotify, res.Decision)
	require.Equal(t, "2 commits pushed", res.Event.Title)
	require.Equal(t, "fix parser\nbump deps", res.Event.Description)
}

func TestNormalize_BranchFilterCaseInsensitive(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{"ref": "refs/heads/Main", "commits": [{"message": "x"}], "repository": {"full_name": "acme/widgets"}}`)
	res, err := n.Normalize(payload, "push")
	require.NoError(t, err)
	require.Equal(t, StoreAndNotify, res.Decision)
}

func TestNormalize_CreateDelete(t *testing.T) {
	n := newTestNormalizer(t)

	res, err := n.Normalize([]byte(`{"ref": "main", "ref_type": "branch"}`), "create")
	require.NoError(t, err)
	require.Equal(t, StoreAndNotify, res.Decision)
	require.Equal(t, "Created branch: main", res.Event.Title)

	// create/delete carry the ref verbatim, so a tag named after a topic
	// branch is filtered out.
	res, err = n.Normalize([]byte(`{"ref": "v1.2.3", "ref_type": "tag"}`), "delete")
	require.NoError(t, err)
	require.Equal(t, Drop, res.Decision)
}

func TestNormalize_ReleaseFallsBackToTagName(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{"release": {"name": "", "tag_name": "v2.0.0", "body": "notes"}, "repository": {"full_name": "acme/widgets"}}`)
	res, err := n.Normalize(payload, "release")
	require.NoError(t, err)
	require.Equal(t, "v2.0.0", res.Event.Title)
	require.Equal(t, "notes", res.Event.Description)
}

func TestNormalize_DiscriminatorFallbacks(t *testing.T) {
	n := newTestNormalizer(t)

	// Embedded event_type field when no header value is supplied.
	res, err := n.Normalize([]byte(`{"event_type": "issues", "issue": {"title": "Bug", "body": "It breaks"}}`), "")
	require.NoError(t, err)
	require.Equal(t, "issues", res.Event.EventType)
	require.Equal(t, "Bug", res.Event.Title)

	// No discriminator at all.
	res, err = n.Normalize([]byte(`{"title": "something", "body": "else"}`), "")
	require.NoError(t, err)
	require.Equal(t, TypeUnknown, res.Event.EventType)
	require.Equal(t, "something", res.Event.Title)
}

func TestNormalize_MalformedJSON(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize([]byte(`{not json`), "push")
	require.Error(t, err)
}

func TestNormalize_DropReasonCodes(t *testing.T) {
	n := newTestNormalizer(t)

	branch := []byte(`{"ref": "refs/heads/dev", "commits": [{"message": "wip"}], "repository": {"full_name": "acme/widgets"}}`)
	res, err := n.Normalize(branch, "push")
	require.NoError(t, err)
	require.Equal(t, ReasonBranchFilter, res.Code)

	sync := []byte(`{"action": "synchronize", "pull_request": {"number": 7, "base": {"ref": "main"}, "head": {"ref": "x"}}}`)
	res, err = n.Normalize(sync, "pull_request")
	require.NoError(t, err)
	require.Equal(t, ReasonSynchronize, res.Code)

	labeled := []byte(`{"action": "labeled", "pull_request": {"number": 7, "base": {"ref": "main"}, "head": {"ref": "x"}}}`)
	res, err = n.Normalize(labeled, "pull_request")
	require.NoError(t, err)
	require.Equal(t, ReasonActionFilter, res.Code)
}

func TestSetPrimaryBranch_ConcurrentWithNormalize(t *testing.T) {
	n := newTestNormalizer(t)
	payload := []byte(`{"ref": "refs/heads/main", "commits": [{"message": "x"}], "repository": {"full_name": "acme/widgets"}}`)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			n.SetPrimaryBranch("develop")
			n.SetPrimaryBranch("main")
		}
	}()
	for i := 0; i < 200; i++ {
		_, err := n.Normalize(payload, "push")
		require.NoError(t, err)
	}
	<-done

	n.SetPrimaryBranch("develop")
	res, err := n.Normalize(payload, "push")
	require.NoError(t, err)
	require.Equal(t, Drop, res.Decision)
	require.Equal(t, ReasonBranchFilter, res.Code)
}

func TestNormalize_WorkflowContextRetained(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{"workflow_run": {"name": "CI", "status": "completed", "conclusion": "success"}, "repository": {"full_name": "acme/widgets"}}`)
	res, err := n.Normalize(payload, "workflow_run")
	require.NoError(t, err)
	require.NotNil(t, res.Event.Workflow)
	require.Equal(t, "CI", res.Event.Workflow.Name)
	require.Equal(t, "success", res.Event.Workflow.Conclusion)
}
