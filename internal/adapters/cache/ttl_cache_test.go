package cache

import (
	"testing"
	"time"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheImpl(t *testing.T) {
	season := domain.Season{
		Number:   3,
		Name:     "Season 3",
		IsActive: true,
	}

	t.Run("Set and get", func(t *testing.T) {
		seasonCache := NewTTLSeasonCache(1000 * time.Second)

		seasonCache.set("current", season)

		result := seasonCache.getOrClaim("current")
		assert.False(t, result.claimed, "Expected entry to exist")
		assert.Equal(t, season, result.data)
	})

	t.Run("getOrClaim claims when missing", func(t *testing.T) {
		seasonCache := NewTTLSeasonCache(1000 * time.Second)

		result := seasonCache.getOrClaim("current")
		assert.True(t, result.claimed, "Expected entry to not exist and get claimed")

		result = seasonCache.getOrClaim("current")
		assert.False(t, result.claimed, "Expected entry to exist and not get claimed")
		assert.False(t, result.valid, "Expected entry to be invalid")
	})

	t.Run("delete", func(t *testing.T) {
		seasonCache := NewTTLSeasonCache(1000 * time.Second)
		seasonCache.set("current", season)

		seasonCache.delete("current")

		result := seasonCache.getOrClaim("current")
		assert.True(t, result.claimed, "Expected to not find a value")
	})

	t.Run("delete missing entry", func(t *testing.T) {
		seasonCache := NewTTLSeasonCache(1000 * time.Second)

		seasonCache.delete("current")

		result := seasonCache.getOrClaim("current")
		assert.True(t, result.claimed, "Expected to not find a value")
	})

	t.Run("wait", func(t *testing.T) {
		seasonCache := NewTTLSeasonCache(1000 * time.Second)
		seasonCache.wait()
	})
}
