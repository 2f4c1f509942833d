package domain

import (
	"time"
)

// Season is one ladder window. Exactly one season is active at any instant;
// the season repository enforces this with a partial unique index and
// re-derives activity lazily rather than caching it in process memory.
type Season struct {
	Number    int
	Name      string
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
}

func (s Season) Contains(now time.Time) bool {
	return !now.Before(s.StartDate) && now.Before(s.EndDate)
}

func (s Season) DaysRemaining(now time.Time) int {
	if now.After(s.EndDate) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}

// TierReward is the season reward granted for finishing in a tier. The top
// tier split carries faction-specific rewards.
type TierReward struct {
	TierName string
	Faction  Faction
	Title    string
	Gold     int
	Items    []string
}

// RewardClaim marks that a player has claimed their reward for a season.
// At most one claim exists per (user, season).
type RewardClaim struct {
	UserID    string
	Season    int
	TierName  string
	ClaimedAt time.Time
}
