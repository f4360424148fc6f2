package app

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithNameResolver sets the display-name collaborator.
func WithNameResolver(names NameResolver) Option {
	return func(s *Service) {
		if names != nil {
			s.names = names
		}
	}
}

// WithRoster sets the group/moderator collaborator.
func WithRoster(roster Roster) Option {
	return func(s *Service) {
		if roster != nil {
			s.roster = roster
		}
	}
}

// WithClock sets the clock used for current-month queries.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxRevisions overrides the vote revision cap.
func WithMaxRevisions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRevisions = n
		}
	}
}

// WithTopLimit caps leaderboard sizes.
func WithTopLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topLimit = n
		}
	}
}
