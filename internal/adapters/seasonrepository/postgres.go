package seasonrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const seasonLength = 30 * 24 * time.Hour

type Postgres struct {
	db      *sqlx.DB
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("ringside/seasonrepository/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

type dbSeason struct {
	Number    int       `db:"number"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	IsActive  bool      `db:"is_active"`
}

func dbSeasonToDomain(row dbSeason) domain.Season {
	return domain.Season{
		Number:    row.Number,
		Name:      row.Name,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		IsActive:  row.IsActive,
	}
}

func (p *Postgres) EnsureSeasonExists(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.EnsureSeasonExists")
	defer span.End()

	var count int
	err := p.db.GetContext(
		ctx,
		&count,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s.seasons`, pq.QuoteIdentifier(p.schema)),
	)
	if err != nil {
		err := fmt.Errorf("failed to count seasons: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	if count > 0 {
		return nil
	}

	now := p.nowFunc()
	_, err = p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.seasons
		(number, name, start_date, end_date, is_active)
		VALUES (1, 'Season 1', $1, $2, true)
		ON CONFLICT (number) DO NOTHING`,
			pq.QuoteIdentifier(p.schema)),
		now,
		now.Add(seasonLength),
	)
	if err != nil {
		err := fmt.Errorf("failed to insert first season: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	return nil
}

func (p *Postgres) GetCurrentSeason(ctx context.Context) (domain.Season, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetCurrentSeason")
	defer span.End()

	now := p.nowFunc()

	season, err := p.getActiveSeason(ctx)
	if errors.Is(err, domain.ErrSeasonNotFound) {
		// No row is marked active. A stored season whose window contains
		// now is still authoritative, so promote it instead of failing.
		season, err = p.promoteContainingSeason(ctx, now)
	}
	if err != nil {
		return domain.Season{}, err
	}
	if season.Contains(now) {
		return season, nil
	}
	if now.Before(season.StartDate) {
		// Clock went backwards relative to the calendar, keep serving the
		// active season rather than failing the ladder
		return season, nil
	}

	err = p.rollForward(ctx, now)
	if err != nil {
		// A concurrent request may have rolled the calendar for us
		season, getErr := p.getActiveSeason(ctx)
		if getErr == nil && season.Contains(now) {
			return season, nil
		}
		return domain.Season{}, err
	}

	return p.getActiveSeason(ctx)
}

func (p *Postgres) getActiveSeason(ctx context.Context) (domain.Season, error) {
	var row dbSeason
	err := p.db.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`SELECT number, name, start_date, end_date, is_active
		FROM %s.seasons WHERE is_active`,
			pq.QuoteIdentifier(p.schema)),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Season{}, domain.ErrSeasonNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to select active season: %w", err)
		reporting.Report(ctx, err)
		return domain.Season{}, err
	}

	return dbSeasonToDomain(row), nil
}

func (p *Postgres) promoteContainingSeason(ctx context.Context, now time.Time) (domain.Season, error) {
	var row dbSeason
	err := p.db.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`UPDATE %s.seasons SET is_active = true
		WHERE start_date <= $1 AND end_date > $1
		RETURNING number, name, start_date, end_date, is_active`,
			pq.QuoteIdentifier(p.schema)),
		now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Season{}, domain.ErrSeasonNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to promote containing season: %w", err)
		reporting.Report(ctx, err)
		return domain.Season{}, err
	}

	return dbSeasonToDomain(row), nil
}

// rollForward deactivates the stale active season and activates (creating if
// needed) successors until the active window contains now.
func (p *Postgres) rollForward(ctx context.Context, now time.Time) error {
	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	defer txx.Rollback()

	var row dbSeason
	err = txx.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`SELECT number, name, start_date, end_date, is_active
		FROM %s.seasons WHERE is_active FOR UPDATE`,
			pq.QuoteIdentifier(p.schema)),
	)
	if errors.Is(err, sql.ErrNoRows) {
		// A concurrent transaction is mid-roll, the caller re-reads
		return domain.ErrSeasonNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to lock active season: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	current := dbSeasonToDomain(row)
	for !current.Contains(now) && !now.Before(current.EndDate) {
		_, err = txx.ExecContext(
			ctx,
			fmt.Sprintf(`UPDATE %s.seasons SET is_active = false WHERE number = $1`,
				pq.QuoteIdentifier(p.schema)),
			current.Number,
		)
		if err != nil {
			err := fmt.Errorf("failed to deactivate season: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"season": strconv.Itoa(current.Number),
			})
			return err
		}

		next := domain.Season{
			Number:    current.Number + 1,
			Name:      fmt.Sprintf("Season %d", current.Number+1),
			StartDate: current.EndDate,
			EndDate:   current.EndDate.Add(seasonLength),
			IsActive:  true,
		}

		var nextRow dbSeason
		err = txx.QueryRowxContext(
			ctx,
			fmt.Sprintf(`INSERT INTO %s.seasons
			(number, name, start_date, end_date, is_active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (number) DO UPDATE SET is_active = true
			RETURNING number, name, start_date, end_date, is_active`,
				pq.QuoteIdentifier(p.schema)),
			next.Number,
			next.Name,
			next.StartDate,
			next.EndDate,
		).StructScan(&nextRow)
		if err != nil {
			err := fmt.Errorf("failed to activate next season: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"season": strconv.Itoa(next.Number),
			})
			return err
		}

		current = dbSeasonToDomain(nextRow)
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	return nil
}

func (p *Postgres) GetSeason(ctx context.Context, number int) (domain.Season, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetSeason")
	defer span.End()

	var row dbSeason
	err := p.db.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`SELECT number, name, start_date, end_date, is_active
		FROM %s.seasons WHERE number = $1`,
			pq.QuoteIdentifier(p.schema)),
		number,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Season{}, domain.ErrSeasonNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to select season: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"season": strconv.Itoa(number),
		})
		return domain.Season{}, err
	}

	return dbSeasonToDomain(row), nil
}

func (p *Postgres) ClaimReward(ctx context.Context, userID string, season int, tierName string) (domain.RewardClaim, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ClaimReward")
	defer span.End()

	if !strutils.UUIDIsNormalized(userID) {
		err := fmt.Errorf("user id is not normalized")
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
		})
		return domain.RewardClaim{}, err
	}

	now := p.nowFunc()

	result, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.season_reward_claims
		(user_id, season, tier_name, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, season) DO NOTHING`,
			pq.QuoteIdentifier(p.schema)),
		userID,
		season,
		tierName,
		now,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert reward claim: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RewardClaim{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RewardClaim{}, err
	}
	if affected == 0 {
		return domain.RewardClaim{}, domain.ErrRewardAlreadyClaimed
	}

	return domain.RewardClaim{
		UserID:    userID,
		Season:    season,
		TierName:  tierName,
		ClaimedAt: now,
	}, nil
}
