// Package interact routes Slack interactive-button callbacks to the GitHub
// gateway: merge and cancel actions on pull requests.
package interact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/logfields"
	"git.home.luguber.info/inful/prbridge/internal/metrics"
	"git.home.luguber.info/inful/prbridge/internal/slack"
)

// Gateway is the subset of the GitHub client the router needs.
type Gateway interface {
	MergePullRequest(ctx context.Context, repo string, prNumber int) github.Result
	ClosePullRequest(ctx context.Context, repo string, prNumber int) github.Result
	GetPullRequest(ctx context.Context, repo string, prNumber int) (*github.PRDetail, error)
}

// Notifier delivers the action outcome back to the channel.
type Notifier interface {
	Dispatch(ctx context.Context, text, eventType, repo string, prNumber int) slack.DeliveryResult
}

// Router handles merge_action and cancel_action callbacks.
type Router struct {
	gateway  Gateway
	notifier Notifier
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewRouter constructs an interaction router.
func NewRouter(gateway Gateway, notifier Notifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{gateway: gateway, notifier: notifier, recorder: metrics.NoopRecorder{}, logger: logger}
}

// WithRecorder attaches a metrics recorder.
func (r *Router) WithRecorder(rec metrics.Recorder) *Router {
	r.recorder = rec
	return r
}

// interactionPayload is the slice of the Slack interaction payload we read.
type interactionPayload struct {
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// actionValue is the opaque payload carried by each button. pr_number may
// arrive as a JSON number or a string.
type actionValue struct {
	Repo     string          `json:"repo"`
	PRNumber json.RawMessage `json:"pr_number"`
}

func (v actionValue) prNumber() (int, error) {
	if len(v.PRNumber) == 0 {
		return 0, fmt.Errorf("missing pr_number")
	}
	var n int
	if err := json.Unmarshal(v.PRNumber, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(v.PRNumber, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("pr_number %s is not an integer", string(v.PRNumber))
}

// Handle processes one interaction callback. The payload argument is the raw
// JSON from the form-encoded "payload" field. The returned string is the text
// shown to the user; errors are structured for the HTTP adapter and any panic
// below the router is converted into an internal error.
func (r *Router) Handle(ctx context.Context, payload []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic handling interaction", slog.Any("panic", rec))
			text = ""
			err = errors.New(errors.CategoryInternal, errors.SeverityError, "interaction handling failed")
		}
	}()

	var ip interactionPayload
	if unmarshalErr := json.Unmarshal(payload, &ip); unmarshalErr != nil {
		return "", errors.ValidationError("malformed interaction payload").
			WithContext("cause", unmarshalErr.Error())
	}
	if len(ip.Actions) == 0 {
		return "", errors.ValidationError("interaction payload has no actions")
	}

	action := ip.Actions[0]

	var value actionValue
	if unmarshalErr := json.Unmarshal([]byte(action.Value), &value); unmarshalErr != nil {
		return "", errors.ValidationError("malformed action value").
			WithContext("cause", unmarshalErr.Error())
	}
	if value.Repo == "" {
		return "", errors.ValidationError("action value missing repo")
	}
	prNumber, prErr := value.prNumber()
	if prErr != nil {
		return "", errors.ValidationError("invalid pr_number in action value").
			WithContext("cause", prErr.Error())
	}

	switch action.ActionID {
	case slack.ActionIDMerge:
		return r.handleMerge(ctx, value.Repo, prNumber), nil
	case slack.ActionIDCancel:
		return r.handleCancel(ctx, value.Repo, prNumber), nil
	default:
		return "", errors.ValidationError("unknown action").
			WithContext("action_id", action.ActionID)
	}
}

func (r *Router) handleMerge(ctx context.Context, repo string, prNumber int) string {
	start := time.Now()
	result := r.gateway.MergePullRequest(ctx, repo, prNumber)
	r.recorder.ObserveRepoOperationDuration("merge", time.Since(start))
	r.recorder.IncRepoOperation("merge", result.OK)
	r.logger.Info("Merge action handled",
		logfields.Repository(repo),
		logfields.PRNumber(prNumber),
		slog.Bool("ok", result.OK))
	r.notifyOutcome(ctx, result.Detail, repo, prNumber)
	return result.Detail
}

func (r *Router) handleCancel(ctx context.Context, repo string, prNumber int) string {
	detail, err := r.gateway.GetPullRequest(ctx, repo, prNumber)
	if err != nil {
		r.recorder.IncRepoOperation("close", false)
		text := fmt.Sprintf("Could not check PR #%d in %s: %v", prNumber, repo, err)
		r.logger.Warn("Cancel action could not inspect PR",
			logfields.Repository(repo),
			logfields.PRNumber(prNumber),
			logfields.Error(err))
		r.notifyOutcome(ctx, text, repo, prNumber)
		return text
	}

	// A merged PR cannot be meaningfully closed.
	if detail.Merged {
		text := fmt.Sprintf("PR #%d in %s is already merged, cancel skipped.", prNumber, repo)
		r.logger.Info("Cancel skipped for merged PR",
			logfields.Repository(repo),
			logfields.PRNumber(prNumber))
		r.notifyOutcome(ctx, text, repo, prNumber)
		return text
	}

	start := time.Now()
	result := r.gateway.ClosePullRequest(ctx, repo, prNumber)
	r.recorder.ObserveRepoOperationDuration("close", time.Since(start))
	r.recorder.IncRepoOperation("close", result.OK)
	r.logger.Info("Cancel action handled",
		logfields.Repository(repo),
		logfields.PRNumber(prNumber),
		slog.Bool("ok", result.OK))
	r.notifyOutcome(ctx, result.Detail, repo, prNumber)
	return result.Detail
}

// notifyOutcome posts the action result text to the channel. The event type
// deliberately is not pull_request so the message carries no buttons.
func (r *Router) notifyOutcome(ctx context.Context, text, repo string, prNumber int) {
	if r.notifier == nil {
		return
	}
	result := r.notifier.Dispatch(ctx, text, "interaction", repo, prNumber)
	if !result.OK {
		r.logger.Warn("Failed to post action outcome",
			logfields.Repository(repo),
			logfields.PRNumber(prNumber),
			slog.String("detail", result.Detail))
	}
}
