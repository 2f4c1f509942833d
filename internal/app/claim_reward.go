package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/adapters/seasonrepository"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
)

// ClaimResult is the outcome of a reward claim. AlreadyClaimed is true when
// the player had claimed before; the reward returned is the same either way.
type ClaimResult struct {
	Reward         domain.TierReward
	Claim          domain.RewardClaim
	AlreadyClaimed bool
}

type ClaimSeasonReward func(ctx context.Context, userID string) (ClaimResult, error)

// BuildClaimSeasonReward grants the reward for the tier a player currently
// holds in the active season. Claims are idempotent: repeating a claim
// returns the same reward flagged AlreadyClaimed instead of failing.
func BuildClaimSeasonReward(
	seasons seasonrepository.SeasonRepository,
	ledgers ledgerrepository.LedgerRepository,
	conf gameconfig.GameConfig,
) ClaimSeasonReward {
	return func(ctx context.Context, userID string) (ClaimResult, error) {
		if !strutils.UUIDIsNormalized(userID) {
			logging.FromContext(ctx).Error("UUID is not normalized", "uuid", userID)
			err := fmt.Errorf("UUID is not normalized")
			reporting.Report(ctx, err)
			return ClaimResult{}, err
		}

		season, err := seasons.GetCurrentSeason(ctx)
		if err != nil {
			// NOTE: SeasonRepository implementations handle their own error reporting
			return ClaimResult{}, fmt.Errorf("could not get current season: %w", err)
		}

		ledger, err := ledgers.GetLedger(ctx, season.Number, userID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("could not get rating ledger: %w", err)
		}

		reward, ok := conf.RewardFor(ledger.Tier)
		if !ok {
			err := fmt.Errorf("no reward configured for tier %s", ledger.Tier.Name)
			reporting.Report(ctx, err, map[string]string{
				"tier":    ledger.Tier.Name,
				"faction": string(ledger.Tier.Faction),
			})
			return ClaimResult{}, err
		}

		claim, err := seasons.ClaimReward(ctx, userID, season.Number, ledger.Tier.Name)
		if err != nil {
			if errors.Is(err, domain.ErrRewardAlreadyClaimed) {
				logging.FromContext(ctx).Info("Season reward claimed again", "season", season.Number)
				return ClaimResult{
					Reward:         reward,
					Claim:          domain.RewardClaim{UserID: userID, Season: season.Number, TierName: ledger.Tier.Name},
					AlreadyClaimed: true,
				}, nil
			}
			return ClaimResult{}, fmt.Errorf("could not claim season reward: %w", err)
		}

		return ClaimResult{Reward: reward, Claim: claim}, nil
	}
}
