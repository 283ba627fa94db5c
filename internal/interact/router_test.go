package interact

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

type fakeGateway struct {
	merged      bool
	detailErr   error
	mergeCalls  int
	closeCalls  int
	mergeResult github.Result
	closeResult github.Result
}

func (f *fakeGateway) MergePullRequest(_ context.Context, repo string, prNumber int) github.Result {
	f.mergeCalls++
	if f.mergeResult.Detail == "" {
		return github.Result{OK: true, Detail: fmt.Sprintf("Successfully merged PR #%d in %s.", prNumber, repo)}
	}
	return f.mergeResult
}

func (f *fakeGateway) ClosePullRequest(_ context.Context, repo string, prNumber int) github.Result {
	f.closeCalls++
	if f.closeResult.Detail == "" {
		return github.Result{OK: true, Detail: fmt.Sprintf("Closed pull request #%d in %s", prNumber, repo)}
	}
	return f.closeResult
}

func (f *fakeGateway) GetPullRequest(_ context.Context, _ string, prNumber int) (*github.PRDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return &github.PRDetail{Number: prNumber, Merged: f.merged}, nil
}

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) Dispatch(_ context.Context, text, _, _ string, _ int) slack.DeliveryResult {
	r.texts = append(r.texts, text)
	return slack.DeliveryResult{OK: true}
}

func interactionJSON(actionID, value string) []byte {
	return []byte(fmt.Sprintf(`{"actions":[{"action_id":%q,"value":%q}]}`, actionID, value))
}

func TestHandleMergeAction(t *testing.T) {
	gw := &fakeGateway{}
	notifier := &recordingNotifier{}
	router := NewRouter(gw, notifier, nil)

	text, err := router.Handle(context.Background(), interactionJSON("merge_action", `{"repo":"acme/widgets","pr_number":7}`))
	require.NoError(t, err)
	require.Equal(t, "Successfully merged PR #7 in acme/widgets.", text)
	require.Equal(t, 1, gw.mergeCalls)
	require.Len(t, notifier.texts, 1)
}

func TestHandleCancelActionClosesOpenPR(t *testing.T) {
	gw := &fakeGateway{merged: false}
	router := NewRouter(gw, &recordingNotifier{}, nil)

	text, err := router.Handle(context.Background(), interactionJSON("cancel_action", `{"repo":"acme/widgets","pr_number":7}`))
	require.NoError(t, err)
	require.Equal(t, "Closed pull request #7 in acme/widgets", text)
	require.Equal(t, 1, gw.closeCalls)
}

func TestHandleCancelActionSkipsMergedPR(t *testing.T) {
	gw := &fakeGateway{merged: true}
	router := NewRouter(gw, &recordingNotifier{}, nil)

	text, err := router.Handle(context.Background(), interactionJSON("cancel_action", `{"repo":"acme/widgets","pr_number":7}`))
	require.NoError(t, err)
	require.Contains(t, text, "already merged, cancel skipped")
	require.Zero(t, gw.closeCalls, "close must not be called for a merged PR")
}

func TestHandlePRNumberAsString(t *testing.T) {
	gw := &fakeGateway{}
	router := NewRouter(gw, &recordingNotifier{}, nil)

	_, err := router.Handle(context.Background(), interactionJSON("merge_action", `{"repo":"acme/widgets","pr_number":"42"}`))
	require.NoError(t, err)
	require.Equal(t, 1, gw.mergeCalls)
}

func TestHandleRejectsNonIntegerPRNumber(t *testing.T) {
	router := NewRouter(&fakeGateway{}, &recordingNotifier{}, nil)

	_, err := router.Handle(context.Background(), interactionJSON("merge_action", `{"repo":"acme/widgets","pr_number":"abc"}`))
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestHandleRejectsUnknownAction(t *testing.T) {
	router := NewRouter(&fakeGateway{}, &recordingNotifier{}, nil)

	_, err := router.Handle(context.Background(), interactionJSON("reopen_action", `{"repo":"acme/widgets","pr_number":1}`))
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	router := NewRouter(&fakeGateway{}, &recordingNotifier{}, nil)

	_, err := router.Handle(context.Background(), []byte("not json"))
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestHandleCancelReportsLookupFailure(t *testing.T) {
	gw := &fakeGateway{detailErr: errors.New(errors.CategoryGitHub, errors.SeverityError, "remote unavailable")}
	notifier := &recordingNotifier{}
	router := NewRouter(gw, notifier, nil)

	text, err := router.Handle(context.Background(), interactionJSON("cancel_action", `{"repo":"acme/widgets","pr_number":7}`))
	require.NoError(t, err, "gateway faults surface as text, not errors")
	require.Contains(t, text, "Could not check PR #7")
	require.Zero(t, gw.closeCalls)

	// The channel hears about the failed attempt like any other outcome.
	require.Len(t, notifier.texts, 1)
	require.Contains(t, notifier.texts[0], "Could not check PR #7")
}
