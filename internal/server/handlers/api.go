package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/server/responses"
)

// APIHandlers serves the admin read API over the event store.
type APIHandlers struct {
	store        eventstore.Store
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewAPIHandlers constructs the admin API handlers.
func NewAPIHandlers(store eventstore.Store) *APIHandlers {
	return &APIHandlers{
		store:        store,
		startTime:    time.Now(),
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck reports liveness and uptime.
func (h *APIHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := responses.HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).Seconds(),
		StartTime: h.startTime,
	}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, errors.WrapError(err, errors.CategoryInternal, "failed to write health response"))
	}
}

// HandleStatus reports the per-category event counts and latest activity.
func (h *APIHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := eventstore.Status(r.Context(), h.store)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, status); err != nil {
		h.errorAdapter.WriteErrorResponse(w, errors.WrapError(err, errors.CategoryInternal, "failed to write status response"))
	}
}

// HandleEvents returns the retained event log, oldest first.
func (h *APIHandlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.List(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}
	resp := responses.EventsResponse{Count: len(events), Events: events}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, errors.WrapError(err, errors.CategoryInternal, "failed to write events response"))
	}
}

// HandleSummary returns the aggregated repository summary.
func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := eventstore.Summarize(r.Context(), h.store)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, summary); err != nil {
		h.errorAdapter.WriteErrorResponse(w, errors.WrapError(err, errors.CategoryInternal, "failed to write summary response"))
	}
}
