package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Amund211/ringside/internal/adapters/cache"
	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/adapters/matchrepository"
	"github.com/Amund211/ringside/internal/adapters/seasonrepository"
	"github.com/Amund211/ringside/internal/adapters/statsprovider"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/logging"
	"github.com/Amund211/ringside/internal/matchmaking"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
	"github.com/google/uuid"
)

// maxChallengeAttempts bounds the retry loop around optimistic concurrency
// conflicts on ledger writes. Conflicts are rare; they require the same
// player (or their opponent) to finish another match between our read and
// our write.
const maxChallengeAttempts = 3

// OpponentSummary identifies the opponent of a resolved challenge. UUID is
// empty for bot opponents; BotID is empty for human ones.
type OpponentSummary struct {
	IsBot bool
	Name  string
	UUID  string
	BotID string

	MMRBefore int
}

// ChallengeResult is everything a client needs to render a finished match:
// the record, the full combat log, both sides' stat snapshots, the
// requester's post-match ledger and the opponent's identity. The snapshots
// plus the log let a renderer replay the fight without further server input.
type ChallengeResult struct {
	Match              domain.MatchRecord
	Log                []domain.CombatLogEntry
	ChallengerSnapshot domain.CombatStats
	OpponentSnapshot   domain.CombatStats
	Ledger             domain.RatingLedger
	Opponent           OpponentSummary
}

type PlayChallenge func(ctx context.Context, userID string, acceptBot bool) (ChallengeResult, error)

type challengeRunner struct {
	seasons    seasonrepository.SeasonRepository
	ledgers    ledgerrepository.LedgerRepository
	matches    matchrepository.MatchRepository
	stats      statsprovider.StatsProvider
	statsCache cache.StatsCache
	matchmaker *matchmaking.Matchmaker
	conf       gameconfig.GameConfig

	nowFunc  func() time.Time
	seedFunc func() int64
}

func (r *challengeRunner) combatStats(ctx context.Context, uuid string) (domain.CombatStats, error) {
	stats, err := cache.GetOrCreate(ctx, r.statsCache, uuid, func() (domain.CombatStats, error) {
		// NOTE: StatsProvider implementations handle their own error reporting
		return r.stats.GetCombatStats(ctx, uuid)
	})
	if err != nil {
		return domain.CombatStats{}, fmt.Errorf("could not get combat stats: %w", err)
	}
	return stats, nil
}

func resultForSide(winner domain.Winner, side domain.Side) domain.MatchResult {
	if winner == domain.WinnerDraw {
		return domain.MatchResultDraw
	}
	if domain.Side(winner) == side {
		return domain.MatchResultWin
	}
	return domain.MatchResultLoss
}

func (r *challengeRunner) playOnce(ctx context.Context, userID string, acceptBot bool) (ChallengeResult, error) {
	logger := logging.FromContext(ctx)

	season, err := r.seasons.GetCurrentSeason(ctx)
	if err != nil {
		// NOTE: SeasonRepository implementations handle their own error reporting
		return ChallengeResult{}, fmt.Errorf("could not get current season: %w", err)
	}

	ledger, err := r.ledgers.GetOrCreateLedger(ctx, season.Number, userID, domain.FactionNone)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("could not get rating ledger: %w", err)
	}

	now := r.nowFunc()
	table := r.conf.TierTable()

	if decayed := ledger.ApplyDecay(now, table); decayed > 0 {
		logger.Info("Applied inactivity decay before match", "decayed", decayed, "mmr", ledger.MMR)
	}

	playerStats, err := r.combatStats(ctx, userID)
	if err != nil {
		return ChallengeResult{}, err
	}

	opponent, err := r.matchmaker.FindOpponent(ctx, ledger, acceptBot)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("could not find opponent: %w", err)
	}

	var (
		opponentStats  domain.CombatStats
		opponentSide   domain.RatingSide
		opponentLedger domain.RatingLedger
		summary        OpponentSummary
	)
	changeRate := 1.0

	if opponent.IsBot {
		opponentStats = opponent.BotStats
		// Bots have no ladder standing. Rating them at the requester's MMR
		// makes the expected score 0.5, so the bot's damping factor alone
		// decides how hard bot matches move the ladder.
		opponentSide = domain.RatingSide{MMR: ledger.MMR, IsPlaced: true}
		changeRate = opponent.Bot.MMRChangeRate
		summary = OpponentSummary{
			IsBot:     true,
			Name:      opponent.Bot.Name,
			BotID:     opponent.Bot.ID,
			MMRBefore: ledger.MMR,
		}
	} else {
		opponentLedger = opponent.Ledger
		opponentStats, err = r.combatStats(ctx, opponentLedger.UserID)
		if err != nil {
			return ChallengeResult{}, fmt.Errorf("could not get opponent combat stats: %w", err)
		}
		opponentSide = domain.RatingSideOf(opponentLedger)
		summary = OpponentSummary{
			Name:      opponentLedger.UserID,
			UUID:      opponentLedger.UserID,
			MMRBefore: opponentLedger.MMR,
		}
	}

	seed := r.seedFunc()
	started := time.Now()
	outcome := domain.ResolveCombat(playerStats, opponentStats, rand.New(rand.NewSource(seed)))
	resolveDuration := time.Since(started)

	update := domain.ComputeRatingUpdate(domain.RatingSideOf(ledger), opponentSide, outcome.Winner, changeRate)

	matchID, err := uuid.NewV7()
	if err != nil {
		reporting.Report(ctx, err)
		return ChallengeResult{}, fmt.Errorf("failed to generate match id: %w", err)
	}

	player1MMRBefore := ledger.MMR

	ledger.AddMatchResult(domain.RecentMatch{
		MatchID:       matchID.String(),
		OpponentName:  summary.Name,
		OpponentIsBot: summary.IsBot,
		Result:        resultForSide(outcome.Winner, domain.SidePlayer1),
		MMRDelta:      update.Player1Delta,
		PlayedAt:      now,
	}, table)

	if opponent.IsBot {
		ledger, err = r.ledgers.UpdateLedger(ctx, ledger)
		if err != nil {
			// NOTE: Concurrency conflicts propagate to the retry loop, which
			// re-reads everything and resolves a fresh match.
			return ChallengeResult{}, fmt.Errorf("could not update rating ledger: %w", err)
		}
	} else {
		opponentLedger.AddMatchResult(domain.RecentMatch{
			MatchID:       matchID.String(),
			OpponentName:  userID,
			OpponentIsBot: false,
			Result:        resultForSide(outcome.Winner, domain.SidePlayer2),
			MMRDelta:      update.Player2Delta,
			PlayedAt:      now,
		}, table)

		// Both ledgers commit as one unit. A conflict or failure on either
		// side voids the whole match, so no request ever half-applies one.
		ledger, _, err = r.ledgers.UpdateLedgers(ctx, ledger, opponentLedger)
		if err != nil {
			return ChallengeResult{}, fmt.Errorf("could not update rating ledgers: %w", err)
		}
	}

	match := domain.MatchRecord{
		MatchID: matchID.String(),
		Season:  season.Number,

		Player1UUID:  userID,
		Player2IsBot: summary.IsBot,
		BotID:        summary.BotID,

		Player1MMRBefore: player1MMRBefore,
		Player2MMRBefore: summary.MMRBefore,
		Player1MMRDelta:  update.Player1Delta,
		Player2MMRDelta:  update.Player2Delta,

		Winner:    outcome.Winner,
		Seed:      seed,
		TurnCount: outcome.TurnCount,
		Duration:  resolveDuration,

		PlayedAt: now,
	}
	if !summary.IsBot {
		opponentUUID := summary.UUID
		match.Player2UUID = &opponentUUID
	}

	// Ignore cancellations from the request context and try to store the match anyway
	// Take a maximum of 1 second to not block the request for too long
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 1*time.Second)
	defer cancel()
	if err := r.matches.StoreMatch(storeCtx, match, outcome.Log); err != nil {
		// NOTE: MatchRepository implementations handle their own error reporting
		logger.Error("failed to store match", "error", err.Error())

		// NOTE: The ratings are already committed, so we still return the
		// result even though storing the record failed
	}

	return ChallengeResult{
		Match:              match,
		Log:                outcome.Log,
		ChallengerSnapshot: playerStats,
		OpponentSnapshot:   opponentStats,
		Ledger:             ledger,
		Opponent:           summary,
	}, nil
}

// BuildPlayChallenge wires the whole challenge pipeline: resolve the current
// season, load and decay the requester's ledger, snapshot both sides' combat
// stats, find an opponent, resolve the fight deterministically from a drawn
// seed, apply the rating update to both ledgers and append the match record.
//
// nowFunc stamps the match; seedFunc draws the combat seed. Both are
// injected so tests can replay exact fights.
func BuildPlayChallenge(
	seasons seasonrepository.SeasonRepository,
	ledgers ledgerrepository.LedgerRepository,
	matches matchrepository.MatchRepository,
	stats statsprovider.StatsProvider,
	statsCache cache.StatsCache,
	matchmaker *matchmaking.Matchmaker,
	conf gameconfig.GameConfig,
	nowFunc func() time.Time,
	seedFunc func() int64,
) PlayChallenge {
	runner := &challengeRunner{
		seasons:    seasons,
		ledgers:    ledgers,
		matches:    matches,
		stats:      stats,
		statsCache: statsCache,
		matchmaker: matchmaker,
		conf:       conf,
		nowFunc:    nowFunc,
		seedFunc:   seedFunc,
	}

	return func(ctx context.Context, userID string, acceptBot bool) (ChallengeResult, error) {
		if !strutils.UUIDIsNormalized(userID) {
			logging.FromContext(ctx).Error("UUID is not normalized", "uuid", userID)
			err := fmt.Errorf("UUID is not normalized")
			reporting.Report(ctx, err)
			return ChallengeResult{}, err
		}

		var lastErr error
		for attempt := 0; attempt < maxChallengeAttempts; attempt++ {
			result, err := runner.playOnce(ctx, userID, acceptBot)
			if err == nil {
				return result, nil
			}
			if !errors.Is(err, domain.ErrConcurrencyConflict) {
				return ChallengeResult{}, err
			}
			lastErr = err
			logging.FromContext(ctx).Info("Retrying challenge after concurrent ledger write", "attempt", attempt+1)
		}
		return ChallengeResult{}, fmt.Errorf("challenge retries exhausted: %w", lastErr)
	}
}
