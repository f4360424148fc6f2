package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/app"
)

// SummaryHandler closes events and reports their ranked results.
type SummaryHandler struct {
	deps Dependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps Dependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// summarizeRequest targets an explicit event, or the most recently created
// one when event_id is empty (the usual end-of-round flow).
type summarizeRequest struct {
	CallerID int64  `json:"caller_id"`
	EventID  string `json:"event_id,omitempty"`
}

type rankedLine struct {
	Position int      `json:"position"`
	UserID   int64    `json:"user_id"`
	Name     string   `json:"name"`
	Average  *float64 `json:"average"`
	Votes    int      `json:"votes"`
}

type summarizeResponse struct {
	EventID string       `json:"event_id"`
	Results []rankedLine `json:"results"`
}

// HandleSummarize handles POST /summary requests.
func (h *SummaryHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	const op = "api.summarize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if req.CallerID == 0 {
		writeError(w, http.StatusBadRequest, "missing_caller", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.Authorize(r.Context(), req.CallerID); err != nil {
		writeError(w, http.StatusForbidden, "not_moderator", Wrap(op, err))
		return
	}

	eventID := req.EventID
	if eventID == "" {
		latest, err := h.deps.LatestEventID(r.Context())
		if err != nil {
			if errors.Is(err, app.ErrNoEvents) {
				writeError(w, http.StatusNotFound, "no_events", Wrap(op, err))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		eventID = latest
	}

	lines, err := h.deps.CloseAndSummarize(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event_not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := summarizeResponse{EventID: eventID, Results: make([]rankedLine, len(lines))}
	for i, line := range lines {
		resp.Results[i] = rankedLine{
			Position: line.Position,
			UserID:   line.UserID,
			Name:     line.Name,
			Average:  round2Ptr(line.Average),
			Votes:    line.Votes,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
