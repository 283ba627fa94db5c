// Package event defines the canonical representation of a GitHub webhook
// notification, independent of the source payload shape, and the normalizer
// that produces it.
package event

// Well-known event type discriminators. Any other value is carried through
// verbatim; TypeUnknown is used when no discriminator is supplied at all.
const (
	TypePullRequest = "pull_request"
	TypePush        = "push"
	TypeIssues      = "issues"
	TypeRelease     = "release"
	TypeCreate      = "create"
	TypeDelete      = "delete"
	TypeUnknown     = "unknown"
)

// Pull request actions that survive the action filter.
const (
	ActionOpened      = "opened"
	ActionReopened    = "reopened"
	ActionClosed      = "closed"
	ActionSynchronize = "synchronize"
)

// Repository is a structured repository reference. Fields may be partially
// populated depending on what the payload carried.
type Repository struct {
	FullName      string `json:"full_name,omitempty"`
	Owner         string `json:"owner,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// Workflow carries GitHub Actions context when the payload includes a
// workflow job or run. Retained so the workflow-status tool can answer
// queries from stored history.
type Workflow struct {
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	Conclusion string `json:"conclusion,omitempty"`
}

// Event is the canonical, persisted form of a webhook notification.
// Events are immutable once stored.
type Event struct {
	Timestamp     string     `json:"timestamp"`
	EventType     string     `json:"event_type"`
	Action        string     `json:"action,omitempty"`
	Repository    Repository `json:"repository"`
	PRNumber      int        `json:"pr_number,omitempty"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Sender        string     `json:"sender,omitempty"`
	BaseBranch    string     `json:"base_branch,omitempty"`
	CompareBranch string     `json:"compare_branch,omitempty"`
	Workflow      *Workflow  `json:"workflow,omitempty"`
}

// IsPullRequest reports whether the event carries pull-request context.
func (e *Event) IsPullRequest() bool {
	return e.EventType == TypePullRequest && e.PRNumber > 0
}
