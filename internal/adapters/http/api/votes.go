package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/vote"
)

// VotesHandler records and revises votes.
type VotesHandler struct {
	deps Dependencies
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps Dependencies) *VotesHandler {
	return &VotesHandler{deps: deps}
}

type castVoteRequest struct {
	EventID  string `json:"event_id"`
	VoterID  int64  `json:"voter_id"`
	TargetID int64  `json:"target_id"`
	Score    int    `json:"score"`
}

type castVoteResponse struct {
	Outcome string   `json:"outcome"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// HandleCastVote handles POST /votes requests.
func (h *VotesHandler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.cast_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if req.EventID == "" || req.VoterID == 0 || req.TargetID == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	stats, outcome, err := h.deps.CastVote(r.Context(), req.EventID, req.VoterID, req.TargetID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, vote.ErrSelfVote):
			writeError(w, http.StatusBadRequest, "self_vote", Wrap(op, err))
		case errors.Is(err, vote.ErrScoreOutOfRange):
			writeError(w, http.StatusBadRequest, "score_out_of_range", Wrap(op, err))
		case errors.Is(err, vote.ErrRevisionLimit):
			writeError(w, http.StatusConflict, "revision_limit_exceeded", Wrap(op, err))
		case errors.Is(err, repository.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event_not_found", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	writeJSON(w, http.StatusOK, castVoteResponse{
		Outcome: string(outcome),
		Average: round2Ptr(stats.Average),
		Count:   stats.Count,
	})
}
