package api

import (
	"net/http"
	"strconv"
	"strings"
)

// UsersHandler serves per-user score reports and history.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type userReportResponse struct {
	UserID         int64    `json:"user_id"`
	Name           string   `json:"name"`
	LastEventScore *float64 `json:"last_event_score"`
	MonthlyAverage *float64 `json:"monthly_average"`
	OverallAverage *float64 `json:"overall_average"`
}

type userHistoryResponse struct {
	UserID int64              `json:"user_id"`
	Events map[string]float64 `json:"events"`
}

// HandleUser routes GET /users/{id}/score and GET /users/{id}/history.
func (h *UsersHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.user"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "bad_user_id", NewKind(op, ErrBadRequest))
		return
	}

	switch parts[1] {
	case "score":
		h.handleScore(w, r, userID)
	case "history":
		h.handleHistory(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *UsersHandler) handleScore(w http.ResponseWriter, r *http.Request, userID int64) {
	const op = "api.user_score"
	report, err := h.deps.GetUserReport(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, userReportResponse{
		UserID:         report.UserID,
		Name:           report.Name,
		LastEventScore: round2Ptr(report.LastEventScore),
		MonthlyAverage: round2Ptr(report.MonthlyAverage),
		OverallAverage: round2Ptr(report.OverallAverage),
	})
}

func (h *UsersHandler) handleHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	const op = "api.user_history"
	history, err := h.deps.UserHistory(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	for eventID, avg := range history {
		history[eventID] = round2(avg)
	}
	writeJSON(w, http.StatusOK, userHistoryResponse{UserID: userID, Events: history})
}
