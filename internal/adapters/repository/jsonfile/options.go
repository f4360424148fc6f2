package jsonfile

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the clock used to stamp event creation times.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}
