package vote

import "errors"

// Sentinel kinds for vote validation errors. All are expected, recoverable
// outcomes meant to reach the caller as typed values.
var (
	ErrSelfVote        = errors.New("self vote rejected")
	ErrScoreOutOfRange = errors.New("score out of range")
	ErrRevisionLimit   = errors.New("revision limit exceeded")
)
