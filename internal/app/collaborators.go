package app

import (
	"context"
	"strconv"
)

// NameResolver turns opaque user identifiers into display names for
// human-readable reports. The engine functions with bare identifiers when
// resolution fails or no resolver is wired.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, userID int64) (string, error)
}

// Roster is supplied by the surrounding application: it answers who the
// current group and players are and whether a caller is a legitimate
// moderator. The engine never inspects chat or group state itself.
type Roster interface {
	IsAuthorizedModerator(ctx context.Context, callerID int64) bool
	CurrentGroupAndPlayers(ctx context.Context) (groupID int64, players []int64)
}

// numericNameResolver renders the identifier itself. Default resolver.
type numericNameResolver struct{}

func (numericNameResolver) ResolveDisplayName(_ context.Context, userID int64) (string, error) {
	return strconv.FormatInt(userID, 10), nil
}

// StaticRoster is a fixed-membership Roster, useful as a default and for
// deployments where the group is configured rather than discovered.
type StaticRoster struct {
	GroupID    int64
	Players    []int64
	Moderators []int64
}

func (r StaticRoster) IsAuthorizedModerator(_ context.Context, callerID int64) bool {
	for _, id := range r.Moderators {
		if id == callerID {
			return true
		}
	}
	return false
}

func (r StaticRoster) CurrentGroupAndPlayers(_ context.Context) (int64, []int64) {
	return r.GroupID, append([]int64(nil), r.Players...)
}
