package seasonrepository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Amund211/ringside/internal/domain"
)

type claimKey struct {
	userID string
	season int
}

// StubSeasonRepository is an in-memory implementation used in development
// and in tests. It rolls the season calendar forward the same way the
// postgres implementation does.
type StubSeasonRepository struct {
	mutex   sync.Mutex
	seasons map[int]domain.Season
	active  int
	claims  map[claimKey]domain.RewardClaim

	nowFunc func() time.Time
}

func NewStubSeasonRepository(nowFunc func() time.Time) *StubSeasonRepository {
	return &StubSeasonRepository{
		seasons: make(map[int]domain.Season),
		claims:  make(map[claimKey]domain.RewardClaim),
		nowFunc: nowFunc,
	}
}

func (s *StubSeasonRepository) EnsureSeasonExists(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.seasons) > 0 {
		return nil
	}

	now := s.nowFunc()
	s.seasons[1] = domain.Season{
		Number:    1,
		Name:      "Season 1",
		StartDate: now,
		EndDate:   now.Add(seasonLength),
		IsActive:  true,
	}
	s.active = 1
	return nil
}

func (s *StubSeasonRepository) GetCurrentSeason(ctx context.Context) (domain.Season, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.nowFunc()

	season, ok := s.seasons[s.active]
	if !ok {
		// No season is marked active, promote the one whose window
		// contains now
		for _, stored := range s.seasons {
			if !stored.Contains(now) {
				continue
			}
			stored.IsActive = true
			s.seasons[stored.Number] = stored
			s.active = stored.Number
			season, ok = stored, true
			break
		}
	}
	if !ok {
		return domain.Season{}, domain.ErrSeasonNotFound
	}

	for !season.Contains(now) && !now.Before(season.EndDate) {
		season.IsActive = false
		s.seasons[season.Number] = season

		next := domain.Season{
			Number:    season.Number + 1,
			Name:      fmt.Sprintf("Season %d", season.Number+1),
			StartDate: season.EndDate,
			EndDate:   season.EndDate.Add(seasonLength),
			IsActive:  true,
		}
		s.seasons[next.Number] = next
		s.active = next.Number
		season = next
	}

	return season, nil
}

func (s *StubSeasonRepository) GetSeason(ctx context.Context, number int) (domain.Season, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	season, ok := s.seasons[number]
	if !ok {
		return domain.Season{}, domain.ErrSeasonNotFound
	}
	return season, nil
}

func (s *StubSeasonRepository) ClaimReward(ctx context.Context, userID string, season int, tierName string) (domain.RewardClaim, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := claimKey{userID: userID, season: season}
	if _, ok := s.claims[key]; ok {
		return domain.RewardClaim{}, domain.ErrRewardAlreadyClaimed
	}

	claim := domain.RewardClaim{
		UserID:    userID,
		Season:    season,
		TierName:  tierName,
		ClaimedAt: s.nowFunc(),
	}
	s.claims[key] = claim
	return claim, nil
}
