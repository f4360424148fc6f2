package vote_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/adapters/repository/jsonfile"
	"github.com/okian/tally/internal/domain/vote"
)

func newStore(t *testing.T) *jsonfile.Store {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "ratings.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestLedger_Cast(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ledger over a store with one open event", t, func() {
		store := newStore(t)
		ledger := vote.New(store)
		_, err := store.CreateEvent(ctx, "1", []int64{1, 2, 3})
		So(err, ShouldBeNil)

		Convey("When a voter rates another player for the first time", func() {
			stats, outcome, err := ledger.Cast(ctx, "1", 2, 1, 5)

			Convey("Then the vote is recorded and counted once", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, vote.OutcomeRecorded)
				So(stats.Count, ShouldEqual, 1)
				So(*stats.Average, ShouldEqual, 5.0)
			})
		})

		Convey("When a voter rates themselves", func() {
			_, outcome, err := ledger.Cast(ctx, "1", 2, 2, 4)

			Convey("Then the vote is rejected and nothing changes", func() {
				So(errors.Is(err, vote.ErrSelfVote), ShouldBeTrue)
				So(outcome, ShouldEqual, vote.OutcomeNone)

				ev, gerr := store.GetEvent(ctx, "1")
				So(gerr, ShouldBeNil)
				So(ev.Stats(2).Count, ShouldEqual, 0)
			})
		})

		Convey("When the score is outside the valid range", func() {
			for _, score := range []int{0, 6, -1} {
				_, _, err := ledger.Cast(ctx, "1", 2, 1, score)
				So(errors.Is(err, vote.ErrScoreOutOfRange), ShouldBeTrue)
			}

			Convey("And boundary scores are accepted", func() {
				_, outcome, err := ledger.Cast(ctx, "1", 2, 1, 1)
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, vote.OutcomeRecorded)

				_, outcome, err = ledger.Cast(ctx, "1", 3, 1, 5)
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, vote.OutcomeRecorded)
			})
		})

		Convey("When the event does not exist", func() {
			_, _, err := ledger.Cast(ctx, "99", 2, 1, 3)

			Convey("Then the cast fails without creating the event", func() {
				So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)
				_, gerr := store.GetEvent(ctx, "99")
				So(errors.Is(gerr, repository.ErrEventNotFound), ShouldBeTrue)
			})
		})

		Convey("When a voter revises their vote repeatedly", func() {
			_, outcome, err := ledger.Cast(ctx, "1", 2, 1, 1)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, vote.OutcomeRecorded)

			for _, score := range []int{2, 3, 4} {
				stats, outcome, err := ledger.Cast(ctx, "1", 2, 1, score)
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, vote.OutcomeUpdated)
				So(*stats.Average, ShouldEqual, float64(score))
				So(stats.Count, ShouldEqual, 1)
			}

			Convey("Then the fourth revision is rejected with stats intact", func() {
				stats, outcome, err := ledger.Cast(ctx, "1", 2, 1, 5)
				So(errors.Is(err, vote.ErrRevisionLimit), ShouldBeTrue)
				So(outcome, ShouldEqual, vote.OutcomeNone)
				So(*stats.Average, ShouldEqual, 4.0)
				So(stats.Count, ShouldEqual, 1)

				ev, gerr := store.GetEvent(ctx, "1")
				So(gerr, ShouldBeNil)
				So(ev.Targets[1][2].Score, ShouldEqual, 4)
				So(ev.Targets[1][2].Revisions, ShouldEqual, 3)
			})
		})

		Convey("When votes from several voters accumulate on one target", func() {
			_, _, err := ledger.Cast(ctx, "1", 2, 1, 3)
			So(err, ShouldBeNil)
			stats, _, err := ledger.Cast(ctx, "1", 3, 1, 5)
			So(err, ShouldBeNil)

			Convey("Then the average is the mean of all current scores", func() {
				So(*stats.Average, ShouldEqual, 4.0)
				So(stats.Count, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a ledger with a custom revision cap", t, func() {
		store := newStore(t)
		ledger := vote.New(store, vote.WithMaxRevisions(1))
		_, err := store.CreateEvent(ctx, "1", []int64{1, 2})
		So(err, ShouldBeNil)

		Convey("When the cap is exhausted", func() {
			_, _, err := ledger.Cast(ctx, "1", 2, 1, 3)
			So(err, ShouldBeNil)
			_, outcome, err := ledger.Cast(ctx, "1", 2, 1, 4)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, vote.OutcomeUpdated)

			Convey("Then the next revision is rejected", func() {
				_, _, err := ledger.Cast(ctx, "1", 2, 1, 5)
				So(errors.Is(err, vote.ErrRevisionLimit), ShouldBeTrue)
			})
		})
	})
}
