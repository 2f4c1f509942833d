package ledgerrepository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Amund211/ringside/internal/domain"
)

type ledgerKey struct {
	season int
	userID string
}

// StubLedgerRepository is an in-memory implementation used in development
// and in tests. It honors the same version check as the postgres
// implementation.
type StubLedgerRepository struct {
	mutex   sync.Mutex
	ledgers map[ledgerKey]domain.RatingLedger

	table   domain.TierTable
	nowFunc func() time.Time
}

func NewStubLedgerRepository(table domain.TierTable, nowFunc func() time.Time) *StubLedgerRepository {
	return &StubLedgerRepository{
		ledgers: make(map[ledgerKey]domain.RatingLedger),
		table:   table,
		nowFunc: nowFunc,
	}
}

func (s *StubLedgerRepository) GetLedger(ctx context.Context, season int, userID string) (domain.RatingLedger, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ledger, ok := s.ledgers[ledgerKey{season: season, userID: userID}]
	if !ok {
		return domain.RatingLedger{}, domain.ErrLedgerNotFound
	}
	return ledger, nil
}

func (s *StubLedgerRepository) GetOrCreateLedger(ctx context.Context, season int, userID string, faction domain.Faction) (domain.RatingLedger, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := ledgerKey{season: season, userID: userID}
	if ledger, ok := s.ledgers[key]; ok {
		return ledger, nil
	}

	ledger := domain.NewRatingLedger(userID, season, faction, s.table, s.nowFunc())
	s.ledgers[key] = ledger
	return ledger, nil
}

func (s *StubLedgerRepository) checkVersionLocked(ledger domain.RatingLedger) error {
	stored, ok := s.ledgers[ledgerKey{season: ledger.Season, userID: ledger.UserID}]
	if !ok {
		return domain.ErrLedgerNotFound
	}
	if stored.Version != ledger.Version {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

func (s *StubLedgerRepository) storeLocked(ledger domain.RatingLedger) domain.RatingLedger {
	updated := ledger
	updated.Version++
	s.ledgers[ledgerKey{season: ledger.Season, userID: ledger.UserID}] = updated
	return updated
}

func (s *StubLedgerRepository) UpdateLedger(ctx context.Context, ledger domain.RatingLedger) (domain.RatingLedger, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.checkVersionLocked(ledger); err != nil {
		return domain.RatingLedger{}, err
	}
	return s.storeLocked(ledger), nil
}

func (s *StubLedgerRepository) UpdateLedgers(ctx context.Context, player1, player2 domain.RatingLedger) (domain.RatingLedger, domain.RatingLedger, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Check both versions up front so a conflict commits neither side
	if err := s.checkVersionLocked(player1); err != nil {
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}
	if err := s.checkVersionLocked(player2); err != nil {
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}

	return s.storeLocked(player1), s.storeLocked(player2), nil
}

func (s *StubLedgerRepository) FindCandidates(ctx context.Context, season int, minMMR, maxMMR int, excludeUserID string, limit int) ([]domain.RatingLedger, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	center := (minMMR + maxMMR) / 2

	candidates := make([]domain.RatingLedger, 0)
	for key, ledger := range s.ledgers {
		if key.season != season || key.userID == excludeUserID {
			continue
		}
		if ledger.MMR < minMMR || ledger.MMR > maxMMR {
			continue
		}
		candidates = append(candidates, ledger)
	}

	sort.Slice(candidates, func(i, j int) bool {
		distI := candidates[i].MMR - center
		if distI < 0 {
			distI = -distI
		}
		distJ := candidates[j].MMR - center
		if distJ < 0 {
			distJ = -distJ
		}
		if distI != distJ {
			return distI < distJ
		}
		return candidates[i].UserID < candidates[j].UserID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}
