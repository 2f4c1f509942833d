package ledgerrepository

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Amund211/ringside/internal/adapters/database"
	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/domaintest"
	"github.com/Amund211/ringside/internal/gameconfig"
)

func newPostgres(t *testing.T, db *sqlx.DB, schemaSuffix string, nowFunc func() time.Time) (*Postgres, string) {
	require.NotEmpty(t, schemaSuffix, "schemaSuffix must not be empty")
	schema := fmt.Sprintf("ledger_repo_test_%s", schemaSuffix)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema)))

	migrator := database.NewDatabaseMigrator(db, logger)

	err := migrator.Migrate(t.Context(), schema)
	require.NoError(t, err)

	conf, err := gameconfig.Load()
	require.NoError(t, err)

	return NewPostgres(db, schema, conf.TierTable(), nowFunc), schema
}

func requireEqualLedgers(t *testing.T, expected, actual domain.RatingLedger) {
	t.Helper()

	// Time can get truncated when round-tripping to the database
	require.WithinDuration(t, expected.LastMatchAt, actual.LastMatchAt, time.Millisecond)
	require.WithinDuration(t, expected.LastDecayCheckAt, actual.LastDecayCheckAt, time.Millisecond)
	expected.LastMatchAt = actual.LastMatchAt
	expected.LastDecayCheckAt = actual.LastDecayCheckAt

	require.Len(t, actual.RecentMatches, len(expected.RecentMatches))
	for i := range expected.RecentMatches {
		require.WithinDuration(t, expected.RecentMatches[i].PlayedAt, actual.RecentMatches[i].PlayedAt, time.Millisecond)
		expected.RecentMatches[i].PlayedAt = actual.RecentMatches[i].PlayedAt
	}

	require.Equal(t, expected, actual)
}

func TestPostgresLedgerRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	userID := domaintest.NewNormalizedUUID(t)
	otherUserID := "fedcba9876543210fedcba9876543210"

	currentTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time {
		return currentTime
	}

	t.Run("get missing ledger", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "get_missing", nowFunc)

		_, err = p.GetLedger(ctx, 1, userID)
		require.ErrorIs(t, err, domain.ErrLedgerNotFound)
	})

	t.Run("get rejects non-normalized uuid", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "get_denormalized", nowFunc)

		_, err = p.GetLedger(ctx, 1, "01234567-89ab-cdef-0123-456789abcdef")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not normalized")
	})

	t.Run("get or create round trips a fresh ledger", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "create_fresh", nowFunc)

		created, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionNone)
		require.NoError(t, err)
		require.Equal(t, domain.InitialMMR, created.MMR)
		require.Equal(t, int64(0), created.Version)
		require.Empty(t, created.RecentMatches)

		fetched, err := p.GetLedger(ctx, 1, userID)
		require.NoError(t, err)
		requireEqualLedgers(t, created, fetched)

		// A second call returns the same ledger
		again, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionNone)
		require.NoError(t, err)
		requireEqualLedgers(t, created, again)
	})

	t.Run("update round trips all fields", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_roundtrip", nowFunc)

		conf, err := gameconfig.Load()
		require.NoError(t, err)
		table := conf.TierTable()

		ledger, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionChinhDao)
		require.NoError(t, err)

		ledger.AddMatchResult(domain.RecentMatch{
			MatchID:       "0195f3f0-0000-7000-8000-000000000001",
			OpponentName:  "Mộc Linh",
			OpponentIsBot: true,
			Result:        domain.MatchResultWin,
			MMRDelta:      32,
			PlayedAt:      currentTime,
		}, table)

		updated, err := p.UpdateLedger(ctx, ledger)
		require.NoError(t, err)
		require.Equal(t, int64(1), updated.Version)

		fetched, err := p.GetLedger(ctx, 1, userID)
		require.NoError(t, err)
		requireEqualLedgers(t, updated, fetched)
		require.Equal(t, 1032, fetched.MMR)
		require.Equal(t, 1, fetched.Wins)
		require.Len(t, fetched.RecentMatches, 1)
	})

	t.Run("update with stale version conflicts", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_conflict", nowFunc)

		ledger, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionNone)
		require.NoError(t, err)

		first := ledger
		first.MMR = 1100
		_, err = p.UpdateLedger(ctx, first)
		require.NoError(t, err)

		// Still holding version 0
		second := ledger
		second.MMR = 900
		_, err = p.UpdateLedger(ctx, second)
		require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

		fetched, err := p.GetLedger(ctx, 1, userID)
		require.NoError(t, err)
		require.Equal(t, 1100, fetched.MMR)
	})

	t.Run("paired update commits both or neither", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_pair", nowFunc)

		first, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionNone)
		require.NoError(t, err)
		second, err := p.GetOrCreateLedger(ctx, 1, otherUserID, domain.FactionNone)
		require.NoError(t, err)

		first.MMR = 1040
		second.MMR = 960
		updatedFirst, updatedSecond, err := p.UpdateLedgers(ctx, first, second)
		require.NoError(t, err)
		require.Equal(t, int64(1), updatedFirst.Version)
		require.Equal(t, int64(1), updatedSecond.Version)

		// A stale version on the second side rolls back the first
		updatedFirst.MMR = 1080
		staleSecond := second
		staleSecond.MMR = 920
		_, _, err = p.UpdateLedgers(ctx, updatedFirst, staleSecond)
		require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

		fetchedFirst, err := p.GetLedger(ctx, 1, userID)
		require.NoError(t, err)
		require.Equal(t, 1040, fetchedFirst.MMR)
		fetchedSecond, err := p.GetLedger(ctx, 1, otherUserID)
		require.NoError(t, err)
		require.Equal(t, 960, fetchedSecond.MMR)
	})

	t.Run("ledgers are per season", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "per_season", nowFunc)

		s1, err := p.GetOrCreateLedger(ctx, 1, userID, domain.FactionNone)
		require.NoError(t, err)

		s1.MMR = 1500
		_, err = p.UpdateLedger(ctx, s1)
		require.NoError(t, err)

		s2, err := p.GetOrCreateLedger(ctx, 2, userID, domain.FactionNone)
		require.NoError(t, err)
		require.Equal(t, domain.InitialMMR, s2.MMR)
	})

	t.Run("find candidates", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "find_candidates", nowFunc)

		mmrs := map[string]int{
			"00000000000000000000000000000001": 950,
			"00000000000000000000000000000002": 1010,
			"00000000000000000000000000000003": 1090,
			"00000000000000000000000000000004": 1300,
		}
		for id, mmr := range mmrs {
			ledger, err := p.GetOrCreateLedger(ctx, 1, id, domain.FactionNone)
			require.NoError(t, err)
			ledger.MMR = mmr
			_, err = p.UpdateLedger(ctx, ledger)
			require.NoError(t, err)
		}

		candidates, err := p.FindCandidates(ctx, 1, 900, 1100, otherUserID, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		// Closest to the window center first
		require.Equal(t, 1010, candidates[0].MMR)

		t.Run("excludes the searching player", func(t *testing.T) {
			candidates, err := p.FindCandidates(ctx, 1, 900, 1100, "00000000000000000000000000000002", 10)
			require.NoError(t, err)
			require.Len(t, candidates, 2)
			for _, candidate := range candidates {
				require.NotEqual(t, "00000000000000000000000000000002", candidate.UserID)
			}
		})

		t.Run("respects the limit", func(t *testing.T) {
			candidates, err := p.FindCandidates(ctx, 1, 900, 1400, otherUserID, 2)
			require.NoError(t, err)
			require.Len(t, candidates, 2)
		})

		t.Run("empty window", func(t *testing.T) {
			candidates, err := p.FindCandidates(ctx, 1, 2000, 2200, otherUserID, 10)
			require.NoError(t, err)
			require.Empty(t, candidates)
		})

		t.Run("invalid limit", func(t *testing.T) {
			_, err := p.FindCandidates(ctx, 1, 900, 1100, otherUserID, 0)
			require.Error(t, err)
		})
	})
}
