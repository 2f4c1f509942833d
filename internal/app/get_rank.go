package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/adapters/seasonrepository"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
)

type GetRank func(ctx context.Context, uuid string) (domain.RatingLedger, error)

// BuildGetRank returns the player's ledger for the current season. Inactivity
// decay is applied lazily on read; a decayed ledger is persisted best-effort
// so the stored MMR converges with what was served.
func BuildGetRank(
	seasons seasonrepository.SeasonRepository,
	ledgers ledgerrepository.LedgerRepository,
	conf gameconfig.GameConfig,
	nowFunc func() time.Time,
) GetRank {
	return func(ctx context.Context, uuid string) (domain.RatingLedger, error) {
		if !strutils.UUIDIsNormalized(uuid) {
			logging.FromContext(ctx).Error("UUID is not normalized", "uuid", uuid)
			err := fmt.Errorf("UUID is not normalized")
			reporting.Report(ctx, err)
			return domain.RatingLedger{}, err
		}

		season, err := seasons.GetCurrentSeason(ctx)
		if err != nil {
			// NOTE: SeasonRepository implementations handle their own error reporting
			return domain.RatingLedger{}, fmt.Errorf("could not get current season: %w", err)
		}

		ledger, err := ledgers.GetLedger(ctx, season.Number, uuid)
		if err != nil {
			return domain.RatingLedger{}, fmt.Errorf("could not get rating ledger: %w", err)
		}

		decayed := ledger.ApplyDecay(nowFunc(), conf.TierTable())
		if decayed > 0 {
			// Ignore cancellations from the request context and try to store the data anyway
			// Take a maximum of 1 second to not block the request for too long
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 1*time.Second)
			defer cancel()
			updated, err := ledgers.UpdateLedger(storeCtx, ledger)
			if err != nil {
				if errors.Is(err, domain.ErrConcurrencyConflict) {
					// A concurrent write applied the same decay or played a
					// match; the decayed view we computed is still what the
					// caller should see for this read.
					logging.FromContext(ctx).Info("Skipped persisting decay after concurrent write")
				} else {
					// NOTE: LedgerRepository implementations handle their own error reporting
					logging.FromContext(ctx).Error("failed to persist decayed ledger", "error", err.Error())
				}
			} else {
				ledger = updated
			}
		}

		return ledger, nil
	}
}
