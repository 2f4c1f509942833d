package matchrepository

import (
	"context"
	"sync"

	"github.com/Amund211/ringside/internal/domain"
)

type storedMatch struct {
	match domain.MatchRecord
	log   []domain.CombatLogEntry
}

// StubMatchRepository is an in-memory implementation used in development
// and in tests.
type StubMatchRepository struct {
	mutex   sync.Mutex
	matches []storedMatch
}

func NewStubMatchRepository() *StubMatchRepository {
	return &StubMatchRepository{}
}

func (s *StubMatchRepository) StoreMatch(ctx context.Context, match domain.MatchRecord, log []domain.CombatLogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.matches = append(s.matches, storedMatch{match: match, log: log})
	return nil
}

func (s *StubMatchRepository) GetMatch(ctx context.Context, matchID string) (domain.MatchRecord, []domain.CombatLogEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, stored := range s.matches {
		if stored.match.MatchID == matchID {
			return stored.match, stored.log, nil
		}
	}
	return domain.MatchRecord{}, nil, domain.ErrMatchNotFound
}

func (s *StubMatchRepository) GetRecentMatches(ctx context.Context, season int, userID string, limit int) ([]domain.MatchRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	matches := make([]domain.MatchRecord, 0)
	// Stored in play order, newest last
	for i := len(s.matches) - 1; i >= 0 && len(matches) < limit; i-- {
		match := s.matches[i].match
		if match.Season != season {
			continue
		}
		if match.Player1UUID == userID || (match.Player2UUID != nil && *match.Player2UUID == userID) {
			matches = append(matches, match)
		}
	}
	return matches, nil
}
