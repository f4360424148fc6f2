package vote

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithMaxRevisions overrides the revision cap. Zero or negative values are
// ignored.
func WithMaxRevisions(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRevisions = n
		}
	}
}
