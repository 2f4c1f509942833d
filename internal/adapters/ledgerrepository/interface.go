package ledgerrepository

import (
	"context"

	"github.com/Amund211/ringside/internal/domain"
)

// LedgerRepository stores one RatingLedger per (user, season).
//
// UpdateLedger performs an optimistic concurrency check on the ledger's
// version and fails with domain.ErrConcurrencyConflict when the stored
// version has moved since the ledger was read.
//
// UpdateLedgers writes both sides of a finished match as one unit: a version
// conflict or failure on either side commits neither.
type LedgerRepository interface {
	GetLedger(ctx context.Context, season int, userID string) (domain.RatingLedger, error)
	GetOrCreateLedger(ctx context.Context, season int, userID string, faction domain.Faction) (domain.RatingLedger, error)
	UpdateLedger(ctx context.Context, ledger domain.RatingLedger) (domain.RatingLedger, error)
	UpdateLedgers(ctx context.Context, player1, player2 domain.RatingLedger) (domain.RatingLedger, domain.RatingLedger, error)
	FindCandidates(ctx context.Context, season int, minMMR, maxMMR int, excludeUserID string, limit int) ([]domain.RatingLedger, error)
}
