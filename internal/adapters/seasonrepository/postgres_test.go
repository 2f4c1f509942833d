package seasonrepository

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
)

func newPostgres(t *testing.T, db *sqlx.DB, schemaSuffix string, nowFunc func() time.Time) *Postgres {
	require.NotEmpty(t, schemaSuffix, "schemaSuffix must not be empty")
	schema := fmt.Sprintf("season_repo_test_%s", schemaSuffix)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema)))

	migrator := database.NewDatabaseMigrator(db, logger)

	err := migrator.Migrate(t.Context(), schema)
	require.NoError(t, err)

	return NewPostgres(db, schema, nowFunc)
}

func TestPostgresSeasonRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	userID := "0123456789abcdef0123456789abcdef"

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no seasons", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "no_seasons", func() time.Time { return start })

		_, err = p.GetCurrentSeason(ctx)
		require.ErrorIs(t, err, domain.ErrSeasonNotFound)
	})

	t.Run("bootstrap first season", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "bootstrap", func() time.Time { return start })

		err = p.EnsureSeasonExists(ctx)
		require.NoError(t, err)

		season, err := p.GetCurrentSeason(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, season.Number)
		require.Equal(t, "Season 1", season.Name)
		require.True(t, season.IsActive)
		require.WithinDuration(t, start, season.StartDate, time.Millisecond)
		require.WithinDuration(t, start.Add(seasonLength), season.EndDate, time.Millisecond)

		// Idempotent
		err = p.EnsureSeasonExists(ctx)
		require.NoError(t, err)

		again, err := p.GetCurrentSeason(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, again.Number)
	})

	t.Run("rolls forward past the season end", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		currentTime := start
		p := newPostgres(t, db, "roll_forward", func() time.Time { return currentTime })

		err = p.EnsureSeasonExists(ctx)
		require.NoError(t, err)

		// Jump over two whole seasons
		currentTime = start.Add(2*seasonLength + 24*time.Hour)

		season, err := p.GetCurrentSeason(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, season.Number)
		require.Equal(t, "Season 3", season.Name)
		require.True(t, season.Contains(currentTime))

		// The old seasons remain, deactivated
		old, err := p.GetSeason(ctx, 1)
		require.NoError(t, err)
		require.False(t, old.IsActive)
		require.WithinDuration(t, start, old.StartDate, time.Millisecond)

		second, err := p.GetSeason(ctx, 2)
		require.NoError(t, err)
		require.False(t, second.IsActive)
		require.WithinDuration(t, old.EndDate, second.StartDate, time.Millisecond)
	})

	t.Run("promotes the containing season when none is active", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "promote_inactive", func() time.Time { return start.Add(24 * time.Hour) })

		// A stored season covers now but lost its active marker
		db.MustExec(fmt.Sprintf(`INSERT INTO %s.seasons
			(number, name, start_date, end_date, is_active)
			VALUES (1, 'Season 1', $1, $2, false)`,
			pq.QuoteIdentifier("season_repo_test_promote_inactive")),
			start,
			start.Add(seasonLength),
		)

		season, err := p.GetCurrentSeason(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, season.Number)
		require.True(t, season.IsActive)

		stored, err := p.GetSeason(ctx, 1)
		require.NoError(t, err)
		require.True(t, stored.IsActive)
	})

	t.Run("get missing season", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "get_missing", func() time.Time { return start })

		_, err = p.GetSeason(ctx, 99)
		require.ErrorIs(t, err, domain.ErrSeasonNotFound)
	})

	t.Run("claim reward is at most once per season", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "claim", func() time.Time { return start })

		claim, err := p.ClaimReward(ctx, userID, 1, "Kim Đan")
		require.NoError(t, err)
		require.Equal(t, userID, claim.UserID)
		require.Equal(t, "Kim Đan", claim.TierName)
		require.WithinDuration(t, start, claim.ClaimedAt, time.Millisecond)

		_, err = p.ClaimReward(ctx, userID, 1, "Kim Đan")
		require.ErrorIs(t, err, domain.ErrRewardAlreadyClaimed)

		// A different season claims independently
		_, err = p.ClaimReward(ctx, userID, 2, "Kim Đan")
		require.NoError(t, err)
	})

	t.Run("claim rejects non-normalized uuid", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p := newPostgres(t, db, "claim_denormalized", func() time.Time { return start })

		_, err = p.ClaimReward(ctx, "01234567-89ab-cdef-0123-456789abcdef", 1, "Kim Đan")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not normalized")
	})
}

func TestStubSeasonRepository(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	currentTime := start
	repo := NewStubSeasonRepository(func() time.Time { return currentTime })

	ctx := t.Context()

	_, err := repo.GetCurrentSeason(ctx)
	require.ErrorIs(t, err, domain.ErrSeasonNotFound)

	require.NoError(t, repo.EnsureSeasonExists(ctx))

	season, err := repo.GetCurrentSeason(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, season.Number)

	currentTime = start.Add(seasonLength + time.Hour)
	season, err = repo.GetCurrentSeason(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, season.Number)

	_, err = repo.ClaimReward(ctx, "user", 1, "Tu Sĩ")
	require.NoError(t, err)
	_, err = repo.ClaimReward(ctx, "user", 1, "Tu Sĩ")
	require.ErrorIs(t, err, domain.ErrRewardAlreadyClaimed)
}

func TestStubSeasonRepositoryPromotesContainingSeason(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := NewStubSeasonRepository(func() time.Time { return start.Add(24 * time.Hour) })

	// A stored season covers now but no season is marked active
	repo.seasons[1] = domain.Season{
		Number:    1,
		Name:      "Season 1",
		StartDate: start,
		EndDate:   start.Add(seasonLength),
		IsActive:  false,
	}

	season, err := repo.GetCurrentSeason(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, season.Number)
	require.True(t, season.IsActive)
}
