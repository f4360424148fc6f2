// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/vote"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Authorize(ctx context.Context, callerID int64) error
	OpenEvent(ctx context.Context, players []int64) (string, error)
	OpenCurrent(ctx context.Context, callerID int64) (string, error)
	CastVote(ctx context.Context, eventID string, voterID, targetID int64, score int) (model.TargetStats, vote.Outcome, error)
	CloseAndSummarize(ctx context.Context, eventID string) ([]app.RankedLine, error)
	LatestEventID(ctx context.Context) (string, error)
	GetMonthlyTop(ctx context.Context, n int) ([]app.Standing, error)
	GetMonthTop(ctx context.Context, year int, month time.Month, n int) ([]app.Standing, error)
	GetOverallTop(ctx context.Context, n int) ([]app.Standing, error)
	GetUserReport(ctx context.Context, userID int64) (app.UserReport, error)
	UserHistory(ctx context.Context, userID int64) (map[string]float64, error)
	EventCount(ctx context.Context) int
}

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler      *HealthHandler
	eventsHandler      *EventsHandler
	votesHandler       *VotesHandler
	summaryHandler     *SummaryHandler
	leaderboardHandler *LeaderboardHandler
	usersHandler       *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		eventsHandler:      NewEventsHandler(deps),
		votesHandler:       NewVotesHandler(deps),
		summaryHandler:     NewSummaryHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		usersHandler:       NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleOpenEvent, "events"))
	mux.HandleFunc("/votes", MetricsMiddleware(s.votesHandler.HandleCastVote, "votes"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.summaryHandler.HandleSummarize, "summary"))
	mux.HandleFunc("/leaderboard/month", MetricsMiddleware(s.leaderboardHandler.HandleMonthlyTop, "leaderboard_month"))
	mux.HandleFunc("/leaderboard/overall", MetricsMiddleware(s.leaderboardHandler.HandleOverallTop, "leaderboard_overall"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUser, "users"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// round2 rounds an average for rendering; internal computation stays exact.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
