package statsprovider

import (
	"context"

	"github.com/Amund211/ringside/internal/domain"
)

// StatsProvider fetches a player's current combat stats from the
// cultivation service. The arena never computes stats itself; it consumes
// an immutable snapshot taken at challenge time.
type StatsProvider interface {
	// Raises domain.ErrStatsUnavailable if the player has no combat stats
	//
	// Raises domain.ErrTemporarilyUnavailable if the provider receives an
	// error believed to be intermittent. The call may be retried later.
	GetCombatStats(ctx context.Context, uuid string) (domain.CombatStats, error)
}
