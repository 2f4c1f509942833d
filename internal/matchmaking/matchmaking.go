package matchmaking

import (
	"context"
	"fmt"

	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	initialWindow  = 100
	windowStep     = 100
	maxWidenSteps  = 4
	candidateLimit = 10
)

// Opponent is the outcome of matchmaking: either a human candidate's ledger
// or a roster bot with its scaled stats.
type Opponent struct {
	IsBot bool

	Ledger domain.RatingLedger

	Bot      gameconfig.Bot
	BotStats domain.CombatStats
}

type Matchmaker struct {
	ledgers ledgerrepository.LedgerRepository
	conf    gameconfig.GameConfig
	tracer  trace.Tracer
}

func NewMatchmaker(ledgers ledgerrepository.LedgerRepository, conf gameconfig.GameConfig) *Matchmaker {
	tracer := otel.Tracer("ringside/matchmaking")
	return &Matchmaker{
		ledgers: ledgers,
		conf:    conf,
		tracer:  tracer,
	}
}

// FindOpponent searches for a human opponent near the requester's MMR,
// widening the window on each empty pass. When no human is available and the
// requester accepts bots, it falls back to the roster bot of the requester's
// tier. Candidates are ordered by MMR closeness, so the first hit wins.
func (m *Matchmaker) FindOpponent(ctx context.Context, ledger domain.RatingLedger, acceptBot bool) (Opponent, error) {
	ctx, span := m.tracer.Start(ctx, "Matchmaker.FindOpponent")
	defer span.End()

	window := initialWindow
	for step := 0; step <= maxWidenSteps; step++ {
		minMMR := ledger.MMR - window
		if minMMR < 0 {
			minMMR = 0
		}
		maxMMR := ledger.MMR + window

		candidates, err := m.ledgers.FindCandidates(ctx, ledger.Season, minMMR, maxMMR, ledger.UserID, candidateLimit)
		if err != nil {
			return Opponent{}, fmt.Errorf("failed to find candidates: %w", err)
		}

		if len(candidates) > 0 {
			logging.FromContext(ctx).InfoContext(
				ctx,
				"Matched against human opponent",
				"window", window,
				"candidates", len(candidates),
			)
			return Opponent{Ledger: candidates[0]}, nil
		}

		window += windowStep
	}

	if !acceptBot {
		return Opponent{}, domain.ErrMatchmakingExhausted
	}

	bot, found := m.conf.BotForTier(ledger.Tier)
	if !found {
		return Opponent{}, fmt.Errorf("%w: no bot for tier %s", domain.ErrMatchmakingExhausted, ledger.Tier.Name)
	}

	logging.FromContext(ctx).InfoContext(ctx, "Matched against bot", "botID", bot.ID, "tier", bot.TierName)

	return Opponent{
		IsBot:    true,
		Bot:      bot,
		BotStats: m.conf.BotStats(bot),
	}, nil
}
