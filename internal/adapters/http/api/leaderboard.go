package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tally/internal/app"
)

// LeaderboardHandler serves the monthly and overall standings.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

type standingRow struct {
	Position int     `json:"position"`
	UserID   int64   `json:"user_id"`
	Name     string  `json:"name"`
	Average  float64 `json:"average"`
	Samples  int     `json:"samples"`
}

// HandleMonthlyTop handles GET /leaderboard/month?limit=N[&year=Y&month=M].
// Without year/month it reports the current calendar month; the average is
// a mean of per-event averages.
func (h *LeaderboardHandler) HandleMonthlyTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard_month"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, ok := h.parseLimit(w, r, op)
	if !ok {
		return
	}

	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")

	var (
		standings []app.Standing
		err       error
	)
	if yearStr == "" && monthStr == "" {
		standings, err = h.deps.GetMonthlyTop(r.Context(), limit)
	} else {
		year, yerr := strconv.Atoi(yearStr)
		month, merr := strconv.Atoi(monthStr)
		if yerr != nil || merr != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "bad_month", NewKind(op, ErrBadRequest))
			return
		}
		standings, err = h.deps.GetMonthTop(r.Context(), year, time.Month(month), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRows(standings))
}

// HandleOverallTop handles GET /leaderboard/overall?limit=N. The average
// pools every individual vote across all events.
func (h *LeaderboardHandler) HandleOverallTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard_overall"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, ok := h.parseLimit(w, r, op)
	if !ok {
		return
	}

	standings, err := h.deps.GetOverallTop(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRows(standings))
}

func (h *LeaderboardHandler) parseLimit(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return h.maxLimit, true
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return 0, false
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return 0, false
	}
	return n, true
}

func toRows(standings []app.Standing) []standingRow {
	rows := make([]standingRow, len(standings))
	for i, st := range standings {
		rows[i] = standingRow{
			Position: st.Position,
			UserID:   st.UserID,
			Name:     st.Name,
			Average:  round2(st.Average),
			Samples:  st.Samples,
		}
	}
	return rows
}
