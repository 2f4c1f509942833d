package matchrepository

import (
	"context"

	"github.com/Amund211/ringside/internal/domain"
)

// MatchRepository is the append-only store of resolved matches. The combat
// log is stored alongside the record so past matches can be replayed.
type MatchRepository interface {
	StoreMatch(ctx context.Context, match domain.MatchRecord, log []domain.CombatLogEntry) error
	GetMatch(ctx context.Context, matchID string) (domain.MatchRecord, []domain.CombatLogEntry, error)
	GetRecentMatches(ctx context.Context, season int, userID string, limit int) ([]domain.MatchRecord, error)
}
