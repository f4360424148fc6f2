// Package rank computes event summaries, leaderboards, and per-user score
// reports across the event store.
//
// Two different averages are in play and must not be conflated: monthly
// standings and user reports average per-event averages (every event
// weighs the same regardless of turnout), while the overall standing pools
// every individual vote (every vote weighs the same). The asymmetry is
// inherited product behavior.
package rank

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
)

// Engine aggregates vote data into rankings and reports.
type Engine struct {
	store repository.Store
	clock clockwork.Clock
}

// New constructs an Engine over the given store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EventSummary returns per-target statistics for one event. Every roster
// player appears, voteless ones with a nil average; targets that received
// votes without being on the roster appear too.
func (e *Engine) EventSummary(ctx context.Context, eventID string) (map[int64]model.TargetStats, error) {
	ev, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	summary := make(map[int64]model.TargetStats, len(ev.Players))
	for _, player := range ev.Players {
		summary[player] = ev.Stats(player)
	}
	for target, vm := range ev.Targets {
		if _, ok := summary[target]; !ok && len(vm) > 0 {
			summary[target] = ev.Stats(target)
		}
	}
	return summary, nil
}

// MonthlyTop ranks users by the mean of their per-event averages over
// events created in the given calendar month, descending, ties kept in
// first-seen order, truncated to topN when topN > 0.
func (e *Engine) MonthlyTop(ctx context.Context, year int, month time.Month, topN int) ([]model.UserStanding, error) {
	events, err := e.store.AllEvents(ctx)
	if err != nil {
		return nil, err
	}

	perUser := make(map[int64][]float64)
	var order []int64
	for _, ev := range events {
		created := ev.Created
		if created.Year() != year || created.Month() != month {
			continue
		}
		for _, target := range sortedTargets(ev) {
			stats := ev.Stats(target)
			if stats.Average == nil {
				continue
			}
			if _, seen := perUser[target]; !seen {
				order = append(order, target)
			}
			perUser[target] = append(perUser[target], *stats.Average)
		}
	}

	standings := make([]model.UserStanding, 0, len(order))
	for _, userID := range order {
		vals := perUser[userID]
		standings = append(standings, model.UserStanding{
			UserID:  userID,
			Average: mean(vals),
			Samples: len(vals),
		})
	}
	sortStandings(standings)
	return truncate(standings, topN), nil
}

// OverallTop ranks users by the pooled mean of every individual vote they
// received across all events, descending, truncated to topN when topN > 0.
func (e *Engine) OverallTop(ctx context.Context, topN int) ([]model.UserStanding, error) {
	events, err := e.store.AllEvents(ctx)
	if err != nil {
		return nil, err
	}

	perUser := make(map[int64][]float64)
	var order []int64
	for _, ev := range events {
		for _, target := range sortedTargets(ev) {
			vm := ev.Targets[target]
			if len(vm) == 0 {
				continue
			}
			if _, seen := perUser[target]; !seen {
				order = append(order, target)
			}
			for _, rec := range vm {
				perUser[target] = append(perUser[target], float64(rec.Score))
			}
		}
	}

	standings := make([]model.UserStanding, 0, len(order))
	for _, userID := range order {
		votes := perUser[userID]
		standings = append(standings, model.UserStanding{
			UserID:  userID,
			Average: mean(votes),
			Samples: len(votes),
		})
	}
	sortStandings(standings)
	return truncate(standings, topN), nil
}

// UserReport summarizes one user's received scores: their per-event average
// in the most recently created event with any vote for them, the mean of
// per-event averages in the clock's current month, and the mean of
// per-event averages across all events.
func (e *Engine) UserReport(ctx context.Context, userID int64) (model.UserReport, error) {
	events, err := e.store.AllEvents(ctx)
	if err != nil {
		return model.UserReport{}, err
	}

	now := e.clock.Now().UTC()
	report := model.UserReport{UserID: userID}

	var (
		all       []float64
		monthly   []float64
		lastScore float64
		lastTime  time.Time
		hasLast   bool
	)
	for _, ev := range events {
		stats := ev.Stats(userID)
		if stats.Average == nil {
			continue
		}
		avg := *stats.Average
		all = append(all, avg)
		if ev.Created.Year() == now.Year() && ev.Created.Month() == now.Month() {
			monthly = append(monthly, avg)
		}
		if !hasLast || !ev.Created.Before(lastTime) {
			lastScore = avg
			lastTime = ev.Created
			hasLast = true
		}
	}

	if hasLast {
		score := lastScore
		report.LastEventScore = &score
	}
	if len(monthly) > 0 {
		avg := mean(monthly)
		report.MonthlyAverage = &avg
	}
	if len(all) > 0 {
		avg := mean(all)
		report.OverallAverage = &avg
	}
	return report, nil
}

func sortedTargets(ev *model.Event) []int64 {
	targets := make([]int64, 0, len(ev.Targets))
	for target := range ev.Targets {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

func sortStandings(standings []model.UserStanding) {
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Average > standings[j].Average
	})
}

func truncate(standings []model.UserStanding, topN int) []model.UserStanding {
	if topN > 0 && len(standings) > topN {
		return standings[:topN]
	}
	return standings
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
