package seasonrepository

import (
	"context"

	"github.com/Amund211/ringside/internal/domain"
)

// SeasonRepository manages the season calendar and reward claims.
//
// GetCurrentSeason is self-healing: when the active season's window has
// passed it rolls the calendar forward until the active season contains now,
// and when no season is marked active it promotes the stored season whose
// window contains now.
type SeasonRepository interface {
	EnsureSeasonExists(ctx context.Context) error
	GetCurrentSeason(ctx context.Context) (domain.Season, error)
	GetSeason(ctx context.Context, number int) (domain.Season, error)
	ClaimReward(ctx context.Context, userID string, season int, tierName string) (domain.RewardClaim, error)
}
