package domain

import "math"

const (
	baseKFactor      = 32.0
	placementKFactor = 64.0
)

// ExpectedScore returns the Elo win probability for a player at mmr against
// an opponent at opponentMMR.
func ExpectedScore(mmr, opponentMMR int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponentMMR-mmr)/400))
}

// RatingSide is the slice of a ledger the rating engine needs. Bot opponents
// have no ledger; they are represented with IsPlaced=true and no loss streak.
type RatingSide struct {
	MMR        int
	IsPlaced   bool
	LossStreak int
}

func (s RatingSide) kFactor() float64 {
	if !s.IsPlaced {
		// Wider K while in placements for faster convergence
		return placementKFactor
	}
	return baseKFactor
}

func (s RatingSide) lossProtection() float64 {
	ledger := RatingLedger{LossStreak: s.LossStreak}
	return ledger.LossProtection()
}

func RatingSideOf(ledger RatingLedger) RatingSide {
	return RatingSide{
		MMR:        ledger.MMR,
		IsPlaced:   ledger.IsPlaced,
		LossStreak: ledger.LossStreak,
	}
}

type RatingUpdate struct {
	Player1Delta int
	Player2Delta int
}

func winnerDelta(k, expected, changeRate float64) int {
	delta := int(math.Round(k * (1 - expected) * changeRate))
	if delta < 1 {
		// Upsets are never worth zero
		delta = 1
	}
	return delta
}

func loserDelta(k, expected, protection, changeRate float64) int {
	delta := int(math.Round(k * expected * protection * changeRate))
	if delta < 1 {
		// Loss protection dampens losses but never erases the loss signal
		delta = 1
	}
	return -delta
}

func drawDelta(k, expected, changeRate float64) int {
	// Half-weight pull toward the expected outcome, so draws nudge mismatched
	// ratings together without moving even matches
	return int(math.Round(k * (0.5 - expected) * 0.5 * changeRate))
}

// ComputeRatingUpdate converts a match verdict into MMR deltas for both
// sides, using pre-match MMR throughout. changeRate is 1 for human matches;
// bot matches pass the bot's damping factor so they move the ladder more
// slowly. For a two-human match between placed players with no active loss
// protection the deltas are anti-symmetric.
func ComputeRatingUpdate(player1, player2 RatingSide, winner Winner, changeRate float64) RatingUpdate {
	expected1 := ExpectedScore(player1.MMR, player2.MMR)
	expected2 := 1 - expected1

	switch winner {
	case WinnerPlayer1:
		return RatingUpdate{
			Player1Delta: winnerDelta(player1.kFactor(), expected1, changeRate),
			Player2Delta: loserDelta(player2.kFactor(), expected2, player2.lossProtection(), changeRate),
		}
	case WinnerPlayer2:
		return RatingUpdate{
			Player1Delta: loserDelta(player1.kFactor(), expected1, player1.lossProtection(), changeRate),
			Player2Delta: winnerDelta(player2.kFactor(), expected2, changeRate),
		}
	default:
		return RatingUpdate{
			Player1Delta: drawDelta(player1.kFactor(), expected1, changeRate),
			Player2Delta: drawDelta(player2.kFactor(), expected2, changeRate),
		}
	}
}
