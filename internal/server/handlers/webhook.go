package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/ingest"
	"git.home.luguber.info/inful/prbridge/internal/logfields"
	"git.home.luguber.info/inful/prbridge/internal/server/responses"
)

// maxWebhookBody caps inbound payload size (GitHub's own limit is 25MB).
const maxWebhookBody = 25 << 20

// Ingestor is the slice of the ingestion pipeline the handler needs.
type Ingestor interface {
	Ingest(ctx context.Context, payload []byte, eventType string) (*ingest.Outcome, error)
}

// WebhookHandlers contains the inbound GitHub webhook handler.
type WebhookHandlers struct {
	ingestor     Ingestor
	secret       string
	errorAdapter *errors.HTTPErrorAdapter
}

// NewWebhookHandlers constructs webhook handlers. An empty secret disables
// signature validation.
func NewWebhookHandlers(ingestor Ingestor, secret string) *WebhookHandlers {
	return &WebhookHandlers{
		ingestor:     ingestor,
		secret:       secret,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleGitHubWebhook receives GitHub webhook deliveries on POST
// /webhook/github. Filtered events are acknowledged as ignored; malformed
// payloads come back as structured 400s.
func (h *WebhookHandlers) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		err := errors.ValidationError("invalid HTTP method").
			WithContext("method", r.Method).
			WithContext("allowed_method", "POST")
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		derr := errors.WrapError(err, errors.CategoryValidation, "failed to read webhook body")
		h.errorAdapter.WriteErrorResponse(w, derr)
		return
	}

	if h.secret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if signature == "" {
			signature = r.Header.Get("X-Hub-Signature")
		}
		if !github.ValidateSignature(payload, signature, h.secret) {
			derr := errors.New(errors.CategoryAuth, errors.SeverityError, "webhook signature validation failed")
			h.errorAdapter.WriteErrorResponse(w, derr)
			return
		}
	}

	eventType := r.Header.Get("X-GitHub-Event")
	outcome, err := h.ingestor.Ingest(r.Context(), payload, eventType)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}

	slog.Debug("Webhook acknowledged",
		logfields.EventType(eventType),
		slog.String("status", outcome.Status))

	resp := responses.WebhookAck{Status: outcome.Status, Reason: outcome.Reason}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		derr := errors.WrapError(err, errors.CategoryInternal, "failed to write webhook response")
		h.errorAdapter.WriteErrorResponse(w, derr)
	}
}
