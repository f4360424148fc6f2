package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/tally/internal/app"
)

// EventsHandler opens rating events.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// openEventRequest carries an explicit roster, or none to snapshot the
// roster collaborator's current players.
type openEventRequest struct {
	CallerID int64   `json:"caller_id"`
	Players  []int64 `json:"players,omitempty"`
}

type openEventResponse struct {
	EventID string `json:"event_id"`
}

// HandleOpenEvent handles POST /events requests.
func (h *EventsHandler) HandleOpenEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req openEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if req.CallerID == 0 {
		writeError(w, http.StatusBadRequest, "missing_caller", NewKind(op, ErrBadRequest))
		return
	}

	var (
		id  string
		err error
	)
	if len(req.Players) > 0 {
		if err := h.deps.Authorize(r.Context(), req.CallerID); err != nil {
			writeError(w, http.StatusForbidden, "not_moderator", Wrap(op, err))
			return
		}
		id, err = h.deps.OpenEvent(r.Context(), req.Players)
	} else {
		id, err = h.deps.OpenCurrent(r.Context(), req.CallerID)
	}
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotModerator):
			writeError(w, http.StatusForbidden, "not_moderator", Wrap(op, err))
		case errors.Is(err, app.ErrNoPlayers):
			writeError(w, http.StatusBadRequest, "no_players", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	writeJSON(w, http.StatusCreated, openEventResponse{EventID: id})
}
