package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/server/responses"
)

// InteractionRouter routes a Slack interaction payload to the GitHub gateway.
type InteractionRouter interface {
	Handle(ctx context.Context, payload []byte) (string, error)
}

// InteractHandlers contains the Slack interactive-callback handler.
type InteractHandlers struct {
	router       InteractionRouter
	errorAdapter *errors.HTTPErrorAdapter
}

// NewInteractHandlers constructs interaction handlers.
func NewInteractHandlers(router InteractionRouter) *InteractHandlers {
	return &InteractHandlers{
		router:       router,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleSlackInteraction receives Slack's form-encoded interaction callback
// on POST /slack/interact. The JSON interaction payload arrives in the
// "payload" form field.
func (h *InteractHandlers) HandleSlackInteraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		err := errors.ValidationError("invalid HTTP method").
			WithContext("method", r.Method).
			WithContext("allowed_method", "POST")
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		derr := errors.WrapError(err, errors.CategoryValidation, "failed to parse interaction form")
		h.errorAdapter.WriteErrorResponse(w, derr)
		return
	}

	payload := r.PostFormValue("payload")
	if payload == "" {
		derr := errors.ValidationError("missing payload form field")
		h.errorAdapter.WriteErrorResponse(w, derr)
		return
	}

	text, err := h.router.Handle(r.Context(), []byte(payload))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, responses.InteractionResponse{Text: text}); err != nil {
		derr := errors.WrapError(err, errors.CategoryInternal, "failed to write interaction response")
		h.errorAdapter.WriteErrorResponse(w, derr)
	}
}
