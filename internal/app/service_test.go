package app_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository/jsonfile"
	"github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/vote"
	"github.com/okian/tally/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

type prefixResolver struct{}

func (prefixResolver) ResolveDisplayName(_ context.Context, userID int64) (string, error) {
	return fmt.Sprintf("player-%d", userID), nil
}

type failingResolver struct{}

func (failingResolver) ResolveDisplayName(_ context.Context, _ int64) (string, error) {
	return "", errors.New("name service unavailable")
}

func newService(t *testing.T, clock clockwork.Clock, opts ...app.Option) *app.Service {
	t.Helper()
	store, err := jsonfile.Open(
		filepath.Join(t.TempDir(), "ratings.json"),
		jsonfile.WithClock(clock),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	opts = append([]app.Option{app.WithClock(clock)}, opts...)
	return app.New(store, opts...)
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))

	Convey("Given a rating service", t, func() {
		svc := newService(t, clock)

		Convey("When running one full round", func() {
			id, err := svc.OpenEvent(ctx, []int64{1, 2, 3})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "1")

			stats, outcome, err := svc.CastVote(ctx, id, 2, 1, 5)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, vote.OutcomeRecorded)
			So(*stats.Average, ShouldEqual, 5.0)
			So(stats.Count, ShouldEqual, 1)

			stats, outcome, err = svc.CastVote(ctx, id, 2, 1, 3)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, vote.OutcomeUpdated)
			So(*stats.Average, ShouldEqual, 3.0)
			So(stats.Count, ShouldEqual, 1)

			lines, err := svc.CloseAndSummarize(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the report ranks the voted player first and voteless ones last", func() {
				So(len(lines), ShouldEqual, 3)
				So(lines[0].UserID, ShouldEqual, 1)
				So(*lines[0].Average, ShouldEqual, 3.0)
				So(lines[0].Votes, ShouldEqual, 1)
				So(lines[1].Average, ShouldBeNil)
				So(lines[2].Average, ShouldBeNil)
				So(lines[0].Position, ShouldEqual, 1)
				So(lines[2].Position, ShouldEqual, 3)
			})

			Convey("And the summary feeds the user score history", func() {
				history, err := svc.UserHistory(ctx, 1)
				So(err, ShouldBeNil)
				So(history, ShouldResemble, map[string]float64{"1": 3.0})
			})

			Convey("And the event stays open for late votes", func() {
				_, outcome, err := svc.CastVote(ctx, id, 3, 1, 5)
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, vote.OutcomeRecorded)
			})
		})

		Convey("When opening an event with no players", func() {
			_, err := svc.OpenEvent(ctx, nil)
			So(errors.Is(err, app.ErrNoPlayers), ShouldBeTrue)
		})
	})
}

func TestService_Leaderboards(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))

	Convey("Given votes spread over two events", t, func() {
		svc := newService(t, clock, app.WithNameResolver(prefixResolver{}))

		id1, err := svc.OpenEvent(ctx, []int64{1, 2, 3})
		So(err, ShouldBeNil)
		_, _, err = svc.CastVote(ctx, id1, 2, 1, 4)
		So(err, ShouldBeNil)
		_, _, err = svc.CastVote(ctx, id1, 3, 1, 4)
		So(err, ShouldBeNil)

		id2, err := svc.OpenEvent(ctx, []int64{1, 2, 3})
		So(err, ShouldBeNil)
		_, _, err = svc.CastVote(ctx, id2, 2, 1, 2)
		So(err, ShouldBeNil)

		Convey("When querying the monthly top", func() {
			standings, err := svc.GetMonthlyTop(ctx, 10)
			So(err, ShouldBeNil)

			Convey("Then the value averages per-event means and names resolve", func() {
				So(len(standings), ShouldEqual, 1)
				So(standings[0].Name, ShouldEqual, "player-1")
				So(standings[0].Average, ShouldEqual, 3.0)
				So(standings[0].Samples, ShouldEqual, 2)
				So(standings[0].Position, ShouldEqual, 1)
			})
		})

		Convey("When querying the overall top", func() {
			standings, err := svc.GetOverallTop(ctx, 10)
			So(err, ShouldBeNil)

			Convey("Then the value pools the three raw votes", func() {
				So(len(standings), ShouldEqual, 1)
				So(standings[0].Samples, ShouldEqual, 3)
				So(standings[0].Average, ShouldAlmostEqual, 10.0/3.0, 1e-9)
			})
		})

		Convey("When querying the user report", func() {
			report, err := svc.GetUserReport(ctx, 1)
			So(err, ShouldBeNil)
			So(report.Name, ShouldEqual, "player-1")
			So(*report.LastEventScore, ShouldEqual, 2.0)
			So(*report.MonthlyAverage, ShouldEqual, 3.0)
			So(*report.OverallAverage, ShouldEqual, 3.0)
		})

		Convey("When resolving the latest event", func() {
			id, err := svc.LatestEventID(ctx)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, id2)
		})
	})

	Convey("Given a name resolver that fails", t, func() {
		svc := newService(t, clock, app.WithNameResolver(failingResolver{}))

		id, err := svc.OpenEvent(ctx, []int64{1, 2})
		So(err, ShouldBeNil)
		_, _, err = svc.CastVote(ctx, id, 2, 1, 5)
		So(err, ShouldBeNil)

		Convey("When summarizing", func() {
			lines, err := svc.CloseAndSummarize(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then reports fall back to numeric identifiers", func() {
				So(lines[0].Name, ShouldEqual, "1")
			})
		})
	})
}

func TestService_Moderation(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))

	Convey("Given a service with a static roster", t, func() {
		roster := app.StaticRoster{
			GroupID:    -100,
			Players:    []int64{1, 2, 3},
			Moderators: []int64{7},
		}
		svc := newService(t, clock, app.WithRoster(roster))

		Convey("When a moderator opens the current round", func() {
			id, err := svc.OpenCurrent(ctx, 7)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "1")
		})

		Convey("When a regular player tries to open a round", func() {
			_, err := svc.OpenCurrent(ctx, 2)
			So(errors.Is(err, app.ErrNotModerator), ShouldBeTrue)
		})

		Convey("When authorizing callers directly", func() {
			So(svc.Authorize(ctx, 7), ShouldBeNil)
			So(errors.Is(svc.Authorize(ctx, 1), app.ErrNotModerator), ShouldBeTrue)
		})
	})

	Convey("Given a service with no events yet", t, func() {
		svc := newService(t, clock)
		_, err := svc.LatestEventID(ctx)
		So(errors.Is(err, app.ErrNoEvents), ShouldBeTrue)
	})
}

func TestService_RevisionCapConfig(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))

	Convey("Given a service with a single-revision cap", t, func() {
		svc := newService(t, clock, app.WithMaxRevisions(1))
		So(svc.MaxRevisions(), ShouldEqual, 1)

		id, err := svc.OpenEvent(ctx, []int64{1, 2})
		So(err, ShouldBeNil)

		Convey("When a voter revises past the cap", func() {
			_, _, err := svc.CastVote(ctx, id, 2, 1, 3)
			So(err, ShouldBeNil)
			_, _, err = svc.CastVote(ctx, id, 2, 1, 4)
			So(err, ShouldBeNil)
			_, _, err = svc.CastVote(ctx, id, 2, 1, 5)
			So(errors.Is(err, vote.ErrRevisionLimit), ShouldBeTrue)
		})
	})
}
