package cache

import (
	"time"

	"github.com/Amund211/ringside/internal/domain"
)

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}

type SeasonCache = Cache[domain.Season]

func NewTTLSeasonCache(ttl time.Duration) SeasonCache {
	return NewTTLCache[domain.Season](ttl)
}

type StatsCache = Cache[domain.CombatStats]

func NewTTLStatsCache(ttl time.Duration) StatsCache {
	return NewTTLCache[domain.CombatStats](ttl)
}
