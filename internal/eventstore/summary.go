package eventstore

import (
	"context"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// Summary is a read model aggregating the retained log.
type Summary struct {
	Repository       string         `json:"repository"`
	Owner            string         `json:"owner,omitempty"`
	CountsByType     map[string]int `json:"counts_by_event_type"`
	Total            int            `json:"total"`
	MostRecentType   string         `json:"most_recent_event_type,omitempty"`
	MostRecentSender string         `json:"most_recent_sender,omitempty"`
}

// StatusSummary counts the literal pull_request/push/issues categories and
// reports the latest event's identity.
type StatusSummary struct {
	Repository      string `json:"repository"`
	OpenPRCount     int    `json:"open_pr_count"`
	PushCount       int    `json:"push_count"`
	IssueCount      int    `json:"issue_count"`
	LatestType      string `json:"latest_type,omitempty"`
	LatestAction    string `json:"latest_action,omitempty"`
	LatestTimestamp string `json:"latest_timestamp,omitempty"`
}

// Summarize aggregates the current log. An empty log yields a zero Summary.
func Summarize(ctx context.Context, store Store) (Summary, error) {
	events, err := store.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{CountsByType: make(map[string]int), Total: len(events)}
	for _, ev := range events {
		t := ev.EventType
		if t == "" {
			t = event.TypeUnknown
		}
		s.CountsByType[t]++
	}
	if len(events) > 0 {
		latest := events[len(events)-1]
		s.Repository = latest.Repository.FullName
		s.Owner = latest.Repository.Owner
		s.MostRecentType = latest.EventType
		s.MostRecentSender = latest.Sender
	}
	return s, nil
}

// Status aggregates per-category counts over the current log.
func Status(ctx context.Context, store Store) (StatusSummary, error) {
	events, err := store.List(ctx)
	if err != nil {
		return StatusSummary{}, err
	}

	var s StatusSummary
	for _, ev := range events {
		switch ev.EventType {
		case event.TypePullRequest:
			s.OpenPRCount++
		case event.TypePush:
			s.PushCount++
		case event.TypeIssues:
			s.IssueCount++
		}
	}
	if len(events) > 0 {
		latest := events[len(events)-1]
		s.Repository = latest.Repository.FullName
		s.LatestType = latest.EventType
		s.LatestAction = latest.Action
		s.LatestTimestamp = latest.Timestamp
	}
	return s, nil
}
