// Package logfields centralizes canonical slog field names so keys do not
// drift between packages.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyEventType  = "event_type"
	KeyAction     = "action"
	KeyRepo       = "repository"
	KeyPRNumber   = "pr_number"
	KeyBranch     = "branch"
	KeySender     = "sender"
	KeyStatus     = "status"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyRequestID  = "request_id"
	KeySubject    = "subject"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func EventType(t string) slog.Attr    { return slog.String(KeyEventType, t) }
func Action(a string) slog.Attr       { return slog.String(KeyAction, a) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func PRNumber(n int) slog.Attr        { return slog.Int(KeyPRNumber, n) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Sender(s string) slog.Attr       { return slog.String(KeySender, s) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
