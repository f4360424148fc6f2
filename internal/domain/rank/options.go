package rank

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the clock used to resolve the current calendar month.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
