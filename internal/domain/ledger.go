package domain

import (
	"time"
)

const InitialMMR = 1000

const PlacementMatchCount = 10

const RecentMatchLimit = 20

type MatchResult string

const (
	MatchResultWin  MatchResult = "win"
	MatchResultLoss MatchResult = "loss"
	MatchResultDraw MatchResult = "draw"
)

// RecentMatch is the compact per-player view of a match kept on the ledger.
type RecentMatch struct {
	MatchID       string
	OpponentName  string
	OpponentIsBot bool
	Result        MatchResult
	MMRDelta      int
	PlayedAt      time.Time
}

// RatingLedger holds a player's standing on the ranked ladder for one season.
// It is owned exclusively by the rating subsystem; Tier and HighestTier are
// caches that must be re-derived from MMR on every mutation.
type RatingLedger struct {
	UserID  string
	Season  int
	Faction Faction

	MMR  int
	Tier Tier

	PlacementMatchesPlayed int
	PlacementWins          int
	IsPlaced               bool

	WinStreak     int
	LossStreak    int
	BestWinStreak int

	Wins   int
	Losses int
	Draws  int

	HighestMMR  int
	HighestTier Tier

	LastMatchAt      time.Time
	LastDecayCheckAt time.Time

	RecentMatches []RecentMatch

	// Incremented on every write, used for optimistic concurrency control
	Version int64
}

func NewRatingLedger(userID string, season int, faction Faction, table TierTable, now time.Time) RatingLedger {
	tier := table.TierForMMR(InitialMMR, faction)
	return RatingLedger{
		UserID:  userID,
		Season:  season,
		Faction: faction,

		MMR:  InitialMMR,
		Tier: tier,

		HighestMMR:  InitialMMR,
		HighestTier: tier,

		LastMatchAt:      now,
		LastDecayCheckAt: now,

		RecentMatches: []RecentMatch{},
	}
}

func (l *RatingLedger) RecomputeTier(table TierTable) {
	l.Tier = table.TierForMMR(l.MMR, l.Faction)

	if l.MMR > l.HighestMMR {
		l.HighestMMR = l.MMR
	}
	// HighestTier follows HighestMMR, so it never moves down
	l.HighestTier = table.TierForMMR(l.HighestMMR, l.Faction)
}

// LossProtection returns the multiplier applied to MMR loss on defeat.
// Longer loss streaks dampen losses without ever erasing the loss signal.
func (l *RatingLedger) LossProtection() float64 {
	switch {
	case l.LossStreak <= 2:
		return 1.0
	case l.LossStreak <= 4:
		return 0.75
	case l.LossStreak <= 6:
		return 0.5
	default:
		return 0.25
	}
}

const decayGraceDays = 7

func decayRatePerDay(daysInactive int) int {
	switch {
	case daysInactive <= 14:
		return 10
	case daysInactive <= 30:
		return 20
	default:
		return 30
	}
}

// ApplyDecay reduces MMR for prolonged inactivity. It is invoked lazily on
// read/pre-match, never by a scheduler. The decayed MMR is clamped at the
// floor of the tier held before decay, so decay alone can never demote a
// player out of their tier. Returns the amount of MMR removed.
func (l *RatingLedger) ApplyDecay(now time.Time, table TierTable) int {
	l.LastDecayCheckAt = now

	daysInactive := int(now.Sub(l.LastMatchAt).Hours() / 24)
	if daysInactive < decayGraceDays {
		return 0
	}

	decay := decayRatePerDay(daysInactive) * (daysInactive - (decayGraceDays - 1))

	floor := l.Tier.MinMMR
	if l.MMR-decay < floor {
		decay = l.MMR - floor
	}
	if decay <= 0 {
		return 0
	}

	l.MMR -= decay
	l.RecomputeTier(table)

	return decay
}

// AddMatchResult applies a resolved match to the ledger: MMR delta, season
// counters, streaks, placement progression, tier re-derivation and the
// recent-match ring. No cooldown is imposed between matches.
func (l *RatingLedger) AddMatchResult(match RecentMatch, table TierTable) {
	l.MMR += match.MMRDelta
	if l.MMR < 0 {
		l.MMR = 0
	}

	switch match.Result {
	case MatchResultWin:
		l.Wins++
		l.WinStreak++
		l.LossStreak = 0
		if l.WinStreak > l.BestWinStreak {
			l.BestWinStreak = l.WinStreak
		}
	case MatchResultLoss:
		l.Losses++
		l.LossStreak++
		l.WinStreak = 0
	case MatchResultDraw:
		l.Draws++
		l.WinStreak = 0
		l.LossStreak = 0
	}

	if !l.IsPlaced {
		l.PlacementMatchesPlayed++
		if match.Result == MatchResultWin {
			l.PlacementWins++
		}
		if l.PlacementMatchesPlayed >= PlacementMatchCount {
			l.IsPlaced = true
		}
	}

	l.RecomputeTier(table)

	l.RecentMatches = append([]RecentMatch{match}, l.RecentMatches...)
	if len(l.RecentMatches) > RecentMatchLimit {
		l.RecentMatches = l.RecentMatches[:RecentMatchLimit]
	}

	l.LastMatchAt = match.PlayedAt
}
