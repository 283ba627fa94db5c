// Package slack formats canonical events into channel messages and delivers
// them to the configured incoming-webhook endpoint.
package slack

import (
	"encoding/json"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// Interactive control action identifiers. The interaction router matches
// callbacks against these.
const (
	ActionIDMerge  = "merge_action"
	ActionIDCancel = "cancel_action"
)

// ActionValue is the opaque payload each interactive button carries so a
// later callback can recover its context without a second lookup.
type ActionValue struct {
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is a Block Kit interactive element (button).
type Element struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Style    string `json:"style,omitempty"`
	Value    string `json:"value,omitempty"`
	ActionID string `json:"action_id,omitempty"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Message is the webhook delivery payload.
type Message struct {
	Blocks []Block `json:"blocks"`
	Text   string  `json:"text"`
	Mrkdwn bool    `json:"mrkdwn"`
}

// BuildMessage constructs the delivery payload: one section block, plus a
// Merge/Cancel actions block iff the event is pull-request scoped with a
// positive PR number.
func BuildMessage(text, eventType, repo string, prNumber int) *Message {
	msg := &Message{
		Blocks: []Block{
			{Type: "section", Text: &Text{Type: "mrkdwn", Text: text}},
		},
		Text:   text,
		Mrkdwn: true,
	}

	if eventType == event.TypePullRequest && prNumber > 0 {
		value, _ := json.Marshal(ActionValue{Repo: repo, PRNumber: prNumber})
		msg.Blocks = append(msg.Blocks, Block{
			Type: "actions",
			Elements: []Element{
				{
					Type:     "button",
					Text:     &Text{Type: "plain_text", Text: "✅ Merge"},
					Style:    "primary",
					Value:    string(value),
					ActionID: ActionIDMerge,
				},
				{
					Type:     "button",
					Text:     &Text{Type: "plain_text", Text: "❌ Cancel"},
					Style:    "danger",
					Value:    string(value),
					ActionID: ActionIDCancel,
				},
			},
		})
	}

	return msg
}
