package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/errors"
)

// Decision tells the ingestion pipeline what to do with a normalized event.
type Decision int

const (
	// Drop means the event is discarded entirely: no store append, no
	// notification. Reported to the webhook caller as "ignored".
	Drop Decision = iota
	// Store means the event is appended to the store but no notification
	// is sent (closed pull requests: the merge/cancel flow already
	// notified).
	Store
	// StoreAndNotify means the event is appended and a notification is
	// dispatched.
	StoreAndNotify
)

// Reason codes for filtered events. These are the low-cardinality labels
// handed to the metrics recorder; the human-readable Reason carries the
// detail for logs and webhook responses.
const (
	ReasonBranchFilter = "branch_filter"
	ReasonSynchronize  = "synchronize"
	ReasonActionFilter = "action_filter"
)

// Result is the outcome of normalizing one webhook delivery.
type Result struct {
	Event    *Event
	Decision Decision
	Reason   string // populated for Drop and Store decisions
	Code     string // reason code, populated for Drop decisions
}

// Normalizer maps raw provider payloads into canonical Events, applying the
// primary-branch and pull-request action filters. Safe for concurrent use:
// the branch filter target can be swapped while Normalize runs.
type Normalizer struct {
	mu            sync.RWMutex
	primaryBranch string

	location *time.Location
	now      func() time.Time
}

// NewNormalizer constructs a Normalizer. primaryBranch defaults to "main",
// displayTZ to "Asia/Kolkata".
func NewNormalizer(primaryBranch, displayTZ string) (*Normalizer, error) {
	if primaryBranch == "" {
		primaryBranch = "main"
	}
	if displayTZ == "" {
		displayTZ = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(displayTZ)
	if err != nil {
		return nil, errors.ConfigError("invalid display timezone").
			WithContext("timezone", displayTZ)
	}
	return &Normalizer{primaryBranch: primaryBranch, location: loc, now: time.Now}, nil
}

// SetPrimaryBranch updates the branch filter target. Used by config reload.
func (n *Normalizer) SetPrimaryBranch(branch string) {
	if branch == "" {
		return
	}
	n.mu.Lock()
	n.primaryBranch = branch
	n.mu.Unlock()
}

func (n *Normalizer) primary() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.primaryBranch
}

// rawPayload covers the superset of fields the normalizer reads across all
// supported event types. Unknown fields are ignored by encoding/json.
type rawPayload struct {
	EventType  string `json:"event_type"`
	Action     string `json:"action"`
	Ref        string `json:"ref"`
	RefType    string `json:"ref_type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Repository struct {
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
		Owner         struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	PullRequest *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Base   struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	Issue *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"issue"`
	Commits []struct {
		Message string `json:"message"`
	} `json:"commits"`
	Release *struct {
		Name    string `json:"name"`
		TagName string `json:"tag_name"`
		Body    string `json:"body"`
	} `json:"release"`
	WorkflowJob *struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
	} `json:"workflow_job"`
	WorkflowRun *struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
	} `json:"workflow_run"`
}

// Normalize maps a raw JSON payload plus the event-type discriminator
// (usually the X-GitHub-Event header; the embedded event_type field is the
// fallback) into a canonical Event and a filtering decision. The only error
// it returns is malformed JSON.
func (n *Normalizer) Normalize(payload []byte, eventType string) (*Result, error) {
	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.ValidationError("invalid JSON payload").
			WithContext("error", err.Error())
	}

	if eventType == "" {
		eventType = raw.EventType
	}
	if eventType == "" {
		eventType = TypeUnknown
	}

	ev := &Event{
		Timestamp: n.now().In(n.location).Format(time.RFC3339),
		EventType: eventType,
		Action:    raw.Action,
		Repository: Repository{
			FullName:      raw.Repository.FullName,
			Owner:         raw.Repository.Owner.Login,
			DefaultBranch: raw.Repository.DefaultBranch,
		},
		Sender: raw.Sender.Login,
	}

	// Branch filter: derive the branch the event is scoped to, per type.
	var branchName string
	switch eventType {
	case TypePullRequest:
		if raw.PullRequest != nil {
			ev.BaseBranch = raw.PullRequest.Base.Ref
			ev.CompareBranch = raw.PullRequest.Head.Ref
			branchName = ev.BaseBranch
		}
	case TypePush:
		if raw.Ref != "" {
			parts := strings.Split(raw.Ref, "/")
			branchName = parts[len(parts)-1]
		}
	case TypeCreate, TypeDelete:
		branchName = raw.Ref
	}
	if primary := n.primary(); branchName != "" && !strings.EqualFold(branchName, primary) {
		return &Result{Event: ev, Decision: Drop, Code: ReasonBranchFilter,
			Reason: fmt.Sprintf("branch %q is not the primary branch %q", branchName, primary)}, nil
	}

	decision := StoreAndNotify
	reason := ""
	if eventType == TypePullRequest {
		switch raw.Action {
		case ActionOpened, ActionReopened:
			// notify
		case ActionClosed:
			// Recorded but not notified: the merge/cancel flow already
			// sent a message for this PR.
			decision = Store
			reason = "closed pull request recorded without notification"
		case ActionSynchronize:
			return &Result{Event: ev, Decision: Drop, Code: ReasonSynchronize,
				Reason: "pull_request action synchronize ignored"}, nil
		default:
			return &Result{Event: ev, Decision: Drop, Code: ReasonActionFilter,
				Reason: fmt.Sprintf("pull_request action %q ignored", raw.Action)}, nil
		}
	}

	// Field extraction per event type.
	switch eventType {
	case TypePullRequest:
		if raw.PullRequest != nil {
			ev.PRNumber = raw.PullRequest.Number
			ev.Title = raw.PullRequest.Title
			ev.Description = raw.PullRequest.Body
		}
	case TypeIssues:
		if raw.Issue != nil {
			ev.Title = raw.Issue.Title
			ev.Description = raw.Issue.Body
		}
	case TypePush:
		if len(raw.Commits) > 0 {
			ev.Title = fmt.Sprintf("%d commits pushed", len(raw.Commits))
			messages := make([]string, 0, len(raw.Commits))
			for _, c := range raw.Commits {
				messages = append(messages, c.Message)
			}
			ev.Description = strings.Join(messages, "\n")
		}
	case TypeRelease:
		if raw.Release != nil {
			ev.Title = raw.Release.Name
			if ev.Title == "" {
				ev.Title = raw.Release.TagName
			}
			ev.Description = raw.Release.Body
		}
	case TypeCreate:
		ev.Title = fmt.Sprintf("Created %s: %s", raw.RefType, raw.Ref)
	case TypeDelete:
		ev.Title = fmt.Sprintf("Deleted %s: %s", raw.RefType, raw.Ref)
	default:
		ev.Title = raw.Title
		ev.Description = raw.Body
	}

	if raw.WorkflowJob != nil {
		ev.Workflow = &Workflow{Name: raw.WorkflowJob.Name, Status: raw.WorkflowJob.Status, Conclusion: raw.WorkflowJob.Conclusion}
	} else if raw.WorkflowRun != nil {
		ev.Workflow = &Workflow{Name: raw.WorkflowRun.Name, Status: raw.WorkflowRun.Status, Conclusion: raw.WorkflowRun.Conclusion}
	}

	return &Result{Event: ev, Decision: decision, Reason: reason}, nil
}
