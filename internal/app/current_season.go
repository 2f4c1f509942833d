package app

import (
	"context"
	"fmt"

	"github.com/Amund211/ringside/internal/adapters/cache"
	"github.com/Amund211/ringside/internal/adapters/seasonrepository"
	"github.com/Amund211/ringside/internal/domain"
)

type GetCurrentSeason func(ctx context.Context) (domain.Season, error)

// BuildGetCurrentSeason serves the active season through a short TTL cache.
// The season calendar only moves once a month, so a cached read is almost
// always correct; the TTL bounds how stale a rollover can be observed.
func BuildGetCurrentSeason(seasons seasonrepository.SeasonRepository, seasonCache cache.SeasonCache) GetCurrentSeason {
	return func(ctx context.Context) (domain.Season, error) {
		season, err := cache.GetOrCreate(ctx, seasonCache, "current", func() (domain.Season, error) {
			// NOTE: SeasonRepository implementations handle their own error reporting
			return seasons.GetCurrentSeason(ctx)
		})
		if err != nil {
			return domain.Season{}, fmt.Errorf("could not get current season: %w", err)
		}
		return season, nil
	}
}
