package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    interface{}
	}{
		{"EventType", KeyEventType, "pull_request", EventType("pull_request")},
		{"Action", KeyAction, "opened", Action("opened")},
		{"Repository", KeyRepo, "acme/widgets", Repository("acme/widgets")},
		{"Branch", KeyBranch, "main", Branch("main")},
		{"Sender", KeySender, "octocat", Sender("octocat")},
		{"Method", KeyMethod, "POST", Method("POST")},
		{"Path", KeyPath, "/webhook/github", Path("/webhook/github")},
		{"UserAgent", KeyUserAgent, "ua", UserAgent("ua")},
		{"RemoteAddr", KeyRemoteAddr, "1.2.3.4", RemoteAddr("1.2.3.4")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"Subject", KeySubject, "events.github", Subject("events.github")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		a := tc.attr.(slog.Attr)
		if a.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, a.Key)
		}
		if got := a.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}
