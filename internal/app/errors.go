package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoPlayers    = errors.New("no players to rate")
	ErrNotModerator = errors.New("caller is not a moderator")
	ErrNoEvents     = errors.New("no events recorded")
)
