// Package vote enforces the per-voter-per-target voting rules and computes
// per-target statistics.
package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// Score bounds for a single vote.
const (
	MinScore = 1
	MaxScore = 5
)

// DefaultMaxRevisions is how often a voter may revise a vote before the
// record becomes immutable.
const DefaultMaxRevisions = 3

// Outcome reports what an accepted cast did.
type Outcome string

const (
	// OutcomeNone means the cast was rejected.
	OutcomeNone Outcome = ""
	// OutcomeRecorded means a first-time vote was inserted.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeUpdated means an existing vote was revised.
	OutcomeUpdated Outcome = "updated"
)

// Ledger validates and applies votes against the event store.
type Ledger struct {
	store        repository.Store
	maxRevisions int
}

// New constructs a Ledger over the given store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		maxRevisions: DefaultMaxRevisions,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRevisions returns the configured revision cap.
func (l *Ledger) MaxRevisions() int {
	return l.maxRevisions
}

// Cast records or revises voterID's score for targetID within the event.
//
// Validation short-circuits in order: self-vote, score range, event
// existence, revision cap. A vote for a target with no entry yet creates
// the target entry under the existing event; events are never auto-created.
// On success the store has persisted before Cast returns, and the returned
// stats are recomputed fresh from the stored votes. A cast rejected at the
// revision cap still returns the target's current, unchanged stats.
func (l *Ledger) Cast(ctx context.Context, eventID string, voterID, targetID int64, score int) (model.TargetStats, Outcome, error) {
	if voterID == targetID {
		metrics.RecordVoteRejected("self_vote")
		return model.TargetStats{}, OutcomeNone,
			fmt.Errorf("voter %d rating themselves: %w", voterID, ErrSelfVote)
	}
	if score < MinScore || score > MaxScore {
		metrics.RecordVoteRejected("score_out_of_range")
		return model.TargetStats{}, OutcomeNone,
			fmt.Errorf("score %d not in [%d,%d]: %w", score, MinScore, MaxScore, ErrScoreOutOfRange)
	}

	var (
		stats   model.TargetStats
		outcome Outcome
	)
	err := l.store.MutateEvent(ctx, eventID, func(ev *model.Event) error {
		vm := ev.Voters(targetID)
		rec, ok := vm[voterID]
		switch {
		case !ok:
			vm[voterID] = &model.VoteRecord{Score: score}
			outcome = OutcomeRecorded
		case rec.Revisions < l.maxRevisions:
			rec.Score = score
			rec.Revisions++
			outcome = OutcomeUpdated
		default:
			stats = ev.Stats(targetID)
			return fmt.Errorf("voter %d, target %d: %w", voterID, targetID, ErrRevisionLimit)
		}
		stats = ev.Stats(targetID)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRevisionLimit):
			metrics.RecordVoteRejected("revision_limit")
			return stats, OutcomeNone, err
		case errors.Is(err, repository.ErrEventNotFound):
			metrics.RecordVoteRejected("event_not_found")
		case errors.Is(err, repository.ErrPersistence):
			metrics.RecordVoteRejected("persistence")
		}
		return model.TargetStats{}, OutcomeNone, err
	}

	switch outcome {
	case OutcomeRecorded:
		metrics.RecordVoteRecorded()
	case OutcomeUpdated:
		metrics.RecordVoteUpdated()
	}
	return stats, outcome, nil
}
