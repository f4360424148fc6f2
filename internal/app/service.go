// Package app composes the store, ledger, and aggregation engine into the
// public rating service.
package app

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/rank"
	"github.com/okian/tally/internal/domain/vote"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// RankedLine is one row of a closed event's report. Players without votes
// rank below everyone with a score.
type RankedLine struct {
	Position int
	UserID   int64
	Name     string
	Average  *float64
	Votes    int
}

// Standing is one leaderboard row with the display name resolved.
type Standing struct {
	Position int
	UserID   int64
	Name     string
	Average  float64
	Samples  int
}

// UserReport is a per-user score summary with the display name resolved.
type UserReport struct {
	UserID         int64
	Name           string
	LastEventScore *float64
	MonthlyAverage *float64
	OverallAverage *float64
}

// Service is the rating façade. All methods are synchronous; CastVote and
// CloseAndSummarize mutate durable state, everything else only reads.
type Service struct {
	store  repository.Store
	ledger *vote.Ledger
	engine *rank.Engine
	names  NameResolver
	roster Roster
	clock  clockwork.Clock
	log    logger.Logger

	maxRevisions int
	topLimit     int
}

// New constructs a Service over the given store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		names:        numericNameResolver{},
		roster:       StaticRoster{},
		clock:        clockwork.NewRealClock(),
		maxRevisions: vote.DefaultMaxRevisions,
		topLimit:     10,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	s.ledger = vote.New(store, vote.WithMaxRevisions(s.maxRevisions))
	s.engine = rank.New(store, rank.WithClock(s.clock))
	return s
}

// Authorize reports whether the caller may manage events.
func (s *Service) Authorize(ctx context.Context, callerID int64) error {
	if !s.roster.IsAuthorizedModerator(ctx, callerID) {
		return ErrNotModerator
	}
	return nil
}

// OpenEvent allocates a new event id and creates the event with the given
// roster snapshot.
func (s *Service) OpenEvent(ctx context.Context, players []int64) (string, error) {
	if len(players) == 0 {
		return "", ErrNoPlayers
	}

	id, err := s.store.NextEventID(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.store.CreateEvent(ctx, id, players); err != nil {
		return "", err
	}

	metrics.RecordEventOpened()
	s.log.Info(ctx, "event opened",
		logger.String("event", id),
		logger.Int("players", len(players)),
	)
	return id, nil
}

// OpenCurrent opens an event for the roster collaborator's current group.
// Only moderators may open events.
func (s *Service) OpenCurrent(ctx context.Context, callerID int64) (string, error) {
	if err := s.Authorize(ctx, callerID); err != nil {
		return "", err
	}
	_, players := s.roster.CurrentGroupAndPlayers(ctx)
	return s.OpenEvent(ctx, players)
}

// CastVote records or revises a vote and returns the target's fresh stats.
func (s *Service) CastVote(ctx context.Context, eventID string, voterID, targetID int64, score int) (model.TargetStats, vote.Outcome, error) {
	stats, outcome, err := s.ledger.Cast(ctx, eventID, voterID, targetID, score)
	if err != nil {
		s.log.Debug(ctx, "vote rejected",
			logger.String("event", eventID),
			logger.Int64("voter", voterID),
			logger.Int64("target", targetID),
			logger.Error(err),
		)
		return stats, outcome, err
	}
	s.log.Debug(ctx, "vote accepted",
		logger.String("event", eventID),
		logger.Int64("voter", voterID),
		logger.Int64("target", targetID),
		logger.String("outcome", string(outcome)),
	)
	return stats, outcome, nil
}

// CloseAndSummarize computes the event's ranked report and persists each
// voted target's per-event average into the user score index. It does not
// seal the event: votes may in principle still arrive afterwards, and a
// later summary reflects them.
func (s *Service) CloseAndSummarize(ctx context.Context, eventID string) ([]RankedLine, error) {
	summary, err := s.engine.EventSummary(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for userID, stats := range summary {
		if stats.Average == nil {
			continue
		}
		if err := s.store.SetUserScore(ctx, userID, eventID, *stats.Average); err != nil {
			return nil, err
		}
	}

	lines := make([]RankedLine, 0, len(summary))
	for userID, stats := range summary {
		lines = append(lines, RankedLine{
			UserID:  userID,
			Name:    s.displayName(ctx, userID),
			Average: stats.Average,
			Votes:   stats.Count,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].Average, lines[j].Average
		switch {
		case a == nil && b == nil:
			return lines[i].UserID < lines[j].UserID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return lines[i].UserID < lines[j].UserID
		}
	})
	for i := range lines {
		lines[i].Position = i + 1
	}

	metrics.RecordEventSummarized()
	s.log.Info(ctx, "event summarized",
		logger.String("event", eventID),
		logger.Int("targets", len(lines)),
	)
	return lines, nil
}

// LatestEventID returns the id of the most recently created event,
// preferring the higher id on equal timestamps.
func (s *Service) LatestEventID(ctx context.Context) (string, error) {
	events, err := s.store.AllEvents(ctx)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", ErrNoEvents
	}

	latest := events[0]
	for _, ev := range events[1:] {
		if !ev.Created.Before(latest.Created) {
			latest = ev
		}
	}
	return latest.ID, nil
}

// GetMonthlyTop returns the current month's standings, capped at n.
func (s *Service) GetMonthlyTop(ctx context.Context, n int) ([]Standing, error) {
	now := s.clock.Now().UTC()
	standings, err := s.engine.MonthlyTop(ctx, now.Year(), now.Month(), s.capTop(n))
	if err != nil {
		return nil, err
	}
	return s.resolveStandings(ctx, standings), nil
}

// GetMonthTop returns the standings for an explicit calendar month.
func (s *Service) GetMonthTop(ctx context.Context, year int, month time.Month, n int) ([]Standing, error) {
	standings, err := s.engine.MonthlyTop(ctx, year, month, s.capTop(n))
	if err != nil {
		return nil, err
	}
	return s.resolveStandings(ctx, standings), nil
}

// GetOverallTop returns the all-time pooled standings, capped at n.
func (s *Service) GetOverallTop(ctx context.Context, n int) ([]Standing, error) {
	standings, err := s.engine.OverallTop(ctx, s.capTop(n))
	if err != nil {
		return nil, err
	}
	return s.resolveStandings(ctx, standings), nil
}

// GetUserReport returns the user's score summary.
func (s *Service) GetUserReport(ctx context.Context, userID int64) (UserReport, error) {
	report, err := s.engine.UserReport(ctx, userID)
	if err != nil {
		return UserReport{}, err
	}
	return UserReport{
		UserID:         userID,
		Name:           s.displayName(ctx, userID),
		LastEventScore: report.LastEventScore,
		MonthlyAverage: report.MonthlyAverage,
		OverallAverage: report.OverallAverage,
	}, nil
}

// UserHistory returns the user's indexed per-event averages as written by
// CloseAndSummarize, keyed by event id.
func (s *Service) UserHistory(ctx context.Context, userID int64) (map[string]float64, error) {
	return s.store.UserScores(ctx, userID)
}

// MaxRevisions returns the configured revision cap.
func (s *Service) MaxRevisions() int {
	return s.ledger.MaxRevisions()
}

// EventCount returns the number of stored events.
func (s *Service) EventCount(ctx context.Context) int {
	return s.store.Count(ctx)
}

func (s *Service) capTop(n int) int {
	if n <= 0 || n > s.topLimit {
		return s.topLimit
	}
	return n
}

func (s *Service) resolveStandings(ctx context.Context, standings []model.UserStanding) []Standing {
	out := make([]Standing, len(standings))
	for i, st := range standings {
		out[i] = Standing{
			Position: i + 1,
			UserID:   st.UserID,
			Name:     s.displayName(ctx, st.UserID),
			Average:  st.Average,
			Samples:  st.Samples,
		}
	}
	return out
}

func (s *Service) displayName(ctx context.Context, userID int64) string {
	name, err := s.names.ResolveDisplayName(ctx, userID)
	if err != nil || name == "" {
		return numericName(userID)
	}
	return name
}

func numericName(userID int64) string {
	name, _ := numericNameResolver{}.ResolveDisplayName(context.Background(), userID)
	return name
}
