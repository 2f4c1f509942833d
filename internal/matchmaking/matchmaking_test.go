package matchmaking_test

import (
	"testing"
	"time"

	"github.com/Amund211/ringside/internal/adapters/ledgerrepository"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/domaintest"
	"github.com/Amund211/ringside/internal/gameconfig"
	"github.com/Amund211/ringside/internal/matchmaking"
	"github.com/stretchr/testify/require"
)

func TestFindOpponent(t *testing.T) {
	t.Parallel()

	conf, err := gameconfig.Load()
	require.NoError(t, err)
	table := conf.TierTable()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	requesterID := "0123456789abcdef0123456789abcdef"

	newLedger := func(t *testing.T, repo *ledgerrepository.StubLedgerRepository, userID string, mmr int) domain.RatingLedger {
		t.Helper()

		_, err := repo.GetOrCreateLedger(t.Context(), 1, userID, domain.FactionNone)
		require.NoError(t, err)
		updated, err := repo.UpdateLedger(t.Context(), domaintest.NewLedgerBuilder(userID, 1, table, now).WithMMR(mmr).Build())
		require.NoError(t, err)
		return updated
	}

	t.Run("prefers the closest human candidate", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1000)
		newLedger(t, repo, "00000000000000000000000000000001", 920)
		closest := newLedger(t, repo, "00000000000000000000000000000002", 1010)

		opponent, err := matchmaker.FindOpponent(t.Context(), requester, true)
		require.NoError(t, err)
		require.False(t, opponent.IsBot)
		require.Equal(t, closest.UserID, opponent.Ledger.UserID)
	})

	t.Run("never matches the requester against themselves", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1000)

		opponent, err := matchmaker.FindOpponent(t.Context(), requester, true)
		require.NoError(t, err)
		require.True(t, opponent.IsBot)
	})

	t.Run("widens the window to find distant humans", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1000)
		// Outside the initial +-100 window, inside the widened one
		distant := newLedger(t, repo, "00000000000000000000000000000001", 1450)

		opponent, err := matchmaker.FindOpponent(t.Context(), requester, true)
		require.NoError(t, err)
		require.False(t, opponent.IsBot)
		require.Equal(t, distant.UserID, opponent.Ledger.UserID)
	})

	t.Run("too distant humans fall back to bot", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1000)
		// Outside even the fully widened window
		newLedger(t, repo, "00000000000000000000000000000001", 1600)

		opponent, err := matchmaker.FindOpponent(t.Context(), requester, true)
		require.NoError(t, err)
		require.True(t, opponent.IsBot)
	})

	t.Run("bot matches the requester's tier", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1650)

		opponent, err := matchmaker.FindOpponent(t.Context(), requester, true)
		require.NoError(t, err)
		require.True(t, opponent.IsBot)
		require.Equal(t, requester.Tier.Name, opponent.Bot.TierName)
		require.Equal(t, requester.Tier.Name, opponent.BotStats.Realm)
		require.Positive(t, opponent.BotStats.Attack)
	})

	t.Run("faction split bots at the top tier", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		_, err := repo.GetOrCreateLedger(t.Context(), 1, requesterID, domain.FactionMaDao)
		require.NoError(t, err)
		ledger, err := repo.UpdateLedger(t.Context(), domaintest.NewLedgerBuilder(requesterID, 1, table, now).WithFaction(domain.FactionMaDao).WithMMR(2300).Build())
		require.NoError(t, err)

		opponent, err := matchmaker.FindOpponent(t.Context(), ledger, true)
		require.NoError(t, err)
		require.True(t, opponent.IsBot)
		require.Equal(t, ledger.Tier.Name, opponent.Bot.TierName)
	})

	t.Run("bot refused and no humans", func(t *testing.T) {
		t.Parallel()

		repo := ledgerrepository.NewStubLedgerRepository(table, nowFunc)
		matchmaker := matchmaking.NewMatchmaker(repo, conf)

		requester := newLedger(t, repo, requesterID, 1000)

		_, err := matchmaker.FindOpponent(t.Context(), requester, false)
		require.ErrorIs(t, err, domain.ErrMatchmakingExhausted)
	})
}
