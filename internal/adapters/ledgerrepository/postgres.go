package ledgerrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/Amund211/ringside/internal/reporting"
	"github.com/Amund211/ringside/internal/strutils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db      *sqlx.DB
	schema  string
	table   domain.TierTable
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, table domain.TierTable, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("ringside/ledgerrepository/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		table:   table,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

type recentMatchStorage struct {
	MatchID       string    `json:"id"`
	OpponentName  string    `json:"op"`
	OpponentIsBot bool      `json:"bot,omitempty"`
	Result        string    `json:"r"`
	MMRDelta      int       `json:"d"`
	PlayedAt      time.Time `json:"at"`
}

type dbLedger struct {
	ID      string `db:"id"`
	UserID  string `db:"user_id"`
	Season  int    `db:"season"`
	Faction string `db:"faction"`

	MMR      int    `db:"mmr"`
	TierName string `db:"tier_name"`

	PlacementMatchesPlayed int  `db:"placement_matches_played"`
	PlacementWins          int  `db:"placement_wins"`
	IsPlaced               bool `db:"is_placed"`

	WinStreak     int `db:"win_streak"`
	LossStreak    int `db:"loss_streak"`
	BestWinStreak int `db:"best_win_streak"`

	Wins   int `db:"wins"`
	Losses int `db:"losses"`
	Draws  int `db:"draws"`

	HighestMMR      int    `db:"highest_mmr"`
	HighestTierName string `db:"highest_tier_name"`

	LastMatchAt      time.Time `db:"last_match_at"`
	LastDecayCheckAt time.Time `db:"last_decay_check_at"`

	RecentMatches []byte `db:"recent_matches"`

	Version int64 `db:"version"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const ledgerColumns = `id, user_id, season, faction, mmr, tier_name,
	placement_matches_played, placement_wins, is_placed,
	win_streak, loss_streak, best_win_streak,
	wins, losses, draws,
	highest_mmr, highest_tier_name,
	last_match_at, last_decay_check_at,
	recent_matches, version, created_at, updated_at`

func recentMatchesToStorage(matches []domain.RecentMatch) ([]byte, error) {
	stored := make([]recentMatchStorage, 0, len(matches))
	for _, match := range matches {
		stored = append(stored, recentMatchStorage{
			MatchID:       match.MatchID,
			OpponentName:  match.OpponentName,
			OpponentIsBot: match.OpponentIsBot,
			Result:        string(match.Result),
			MMRDelta:      match.MMRDelta,
			PlayedAt:      match.PlayedAt,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recent matches: %w", err)
	}
	return data, nil
}

func (p *Postgres) dbLedgerToDomain(row dbLedger) (domain.RatingLedger, error) {
	var stored []recentMatchStorage
	err := json.Unmarshal(row.RecentMatches, &stored)
	if err != nil {
		return domain.RatingLedger{}, fmt.Errorf("failed to unmarshal recent matches: %w", err)
	}

	recentMatches := make([]domain.RecentMatch, 0, len(stored))
	for _, match := range stored {
		recentMatches = append(recentMatches, domain.RecentMatch{
			MatchID:       match.MatchID,
			OpponentName:  match.OpponentName,
			OpponentIsBot: match.OpponentIsBot,
			Result:        domain.MatchResult(match.Result),
			MMRDelta:      match.MMRDelta,
			PlayedAt:      match.PlayedAt,
		})
	}

	faction := domain.Faction(row.Faction)

	tier, ok := p.table.ByName(row.TierName)
	if !ok {
		// Tier table changed since the row was written
		tier = p.table.TierForMMR(row.MMR, faction)
	}
	highestTier, ok := p.table.ByName(row.HighestTierName)
	if !ok {
		highestTier = p.table.TierForMMR(row.HighestMMR, faction)
	}

	return domain.RatingLedger{
		UserID:  row.UserID,
		Season:  row.Season,
		Faction: faction,

		MMR:  row.MMR,
		Tier: tier,

		PlacementMatchesPlayed: row.PlacementMatchesPlayed,
		PlacementWins:          row.PlacementWins,
		IsPlaced:               row.IsPlaced,

		WinStreak:     row.WinStreak,
		LossStreak:    row.LossStreak,
		BestWinStreak: row.BestWinStreak,

		Wins:   row.Wins,
		Losses: row.Losses,
		Draws:  row.Draws,

		HighestMMR:  row.HighestMMR,
		HighestTier: highestTier,

		LastMatchAt:      row.LastMatchAt,
		LastDecayCheckAt: row.LastDecayCheckAt,

		RecentMatches: recentMatches,

		Version: row.Version,
	}, nil
}

func (p *Postgres) GetLedger(ctx context.Context, season int, userID string) (domain.RatingLedger, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetLedger")
	defer span.End()

	if !strutils.UUIDIsNormalized(userID) {
		err := fmt.Errorf("user id is not normalized")
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
		})
		return domain.RatingLedger{}, err
	}

	var row dbLedger
	err := p.db.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`SELECT %s FROM %s.rating_ledgers WHERE season = $1 AND user_id = $2`,
			ledgerColumns, pq.QuoteIdentifier(p.schema)),
		season,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RatingLedger{}, domain.ErrLedgerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to select ledger: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RatingLedger{}, err
	}

	ledger, err := p.dbLedgerToDomain(row)
	if err != nil {
		err := fmt.Errorf("failed to convert db ledger: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RatingLedger{}, err
	}

	return ledger, nil
}

func (p *Postgres) GetOrCreateLedger(ctx context.Context, season int, userID string, faction domain.Faction) (domain.RatingLedger, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetOrCreateLedger")
	defer span.End()

	ledger, err := p.GetLedger(ctx, season, userID)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return domain.RatingLedger{}, err
	}

	fresh := domain.NewRatingLedger(userID, season, faction, p.table, p.nowFunc())

	recentMatches, err := recentMatchesToStorage(fresh.RecentMatches)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RatingLedger{}, err
	}

	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
		})
		return domain.RatingLedger{}, err
	}

	// Lose the race gracefully: a concurrent insert wins and we read theirs
	_, err = p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.rating_ledgers
		(id, user_id, season, faction, mmr, tier_name,
			highest_mmr, highest_tier_name,
			last_match_at, last_decay_check_at, recent_matches)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, season) DO NOTHING`,
			pq.QuoteIdentifier(p.schema)),
		dbID.String(),
		fresh.UserID,
		fresh.Season,
		string(fresh.Faction),
		fresh.MMR,
		fresh.Tier.Name,
		fresh.HighestMMR,
		fresh.HighestTier.Name,
		fresh.LastMatchAt,
		fresh.LastDecayCheckAt,
		recentMatches,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert ledger: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return domain.RatingLedger{}, err
	}

	return p.GetLedger(ctx, season, userID)
}

// updateLedgerIn fails with domain.ErrConcurrencyConflict when the stored
// version no longer matches the ledger's. Running it on a transaction lets
// callers tie multiple ledger writes together.
func (p *Postgres) updateLedgerIn(ctx context.Context, ext sqlx.ExtContext, ledger domain.RatingLedger) error {
	recentMatches, err := recentMatchesToStorage(ledger.RecentMatches)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"userID": ledger.UserID,
			"season": strconv.Itoa(ledger.Season),
		})
		return err
	}

	result, err := ext.ExecContext(
		ctx,
		fmt.Sprintf(`UPDATE %s.rating_ledgers SET
			faction = $1,
			mmr = $2,
			tier_name = $3,
			placement_matches_played = $4,
			placement_wins = $5,
			is_placed = $6,
			win_streak = $7,
			loss_streak = $8,
			best_win_streak = $9,
			wins = $10,
			losses = $11,
			draws = $12,
			highest_mmr = $13,
			highest_tier_name = $14,
			last_match_at = $15,
			last_decay_check_at = $16,
			recent_matches = $17,
			version = version + 1,
			updated_at = $18
		WHERE user_id = $19 AND season = $20 AND version = $21`,
			pq.QuoteIdentifier(p.schema)),
		string(ledger.Faction),
		ledger.MMR,
		ledger.Tier.Name,
		ledger.PlacementMatchesPlayed,
		ledger.PlacementWins,
		ledger.IsPlaced,
		ledger.WinStreak,
		ledger.LossStreak,
		ledger.BestWinStreak,
		ledger.Wins,
		ledger.Losses,
		ledger.Draws,
		ledger.HighestMMR,
		ledger.HighestTier.Name,
		ledger.LastMatchAt,
		ledger.LastDecayCheckAt,
		recentMatches,
		p.nowFunc(),
		ledger.UserID,
		ledger.Season,
		ledger.Version,
	)
	if err != nil {
		err := fmt.Errorf("failed to update ledger: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": ledger.UserID,
			"season": strconv.Itoa(ledger.Season),
		})
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": ledger.UserID,
			"season": strconv.Itoa(ledger.Season),
		})
		return err
	}
	if affected == 0 {
		return domain.ErrConcurrencyConflict
	}

	return nil
}

func (p *Postgres) UpdateLedger(ctx context.Context, ledger domain.RatingLedger) (domain.RatingLedger, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.UpdateLedger")
	defer span.End()

	if err := p.updateLedgerIn(ctx, p.db, ledger); err != nil {
		return domain.RatingLedger{}, err
	}

	updated := ledger
	updated.Version++
	return updated, nil
}

func (p *Postgres) UpdateLedgers(ctx context.Context, player1, player2 domain.RatingLedger) (domain.RatingLedger, domain.RatingLedger, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.UpdateLedgers")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}
	defer txx.Rollback()

	if err := p.updateLedgerIn(ctx, txx, player1); err != nil {
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}
	if err := p.updateLedgerIn(ctx, txx, player2); err != nil {
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return domain.RatingLedger{}, domain.RatingLedger{}, err
	}

	updated1 := player1
	updated1.Version++
	updated2 := player2
	updated2.Version++
	return updated1, updated2, nil
}

func (p *Postgres) FindCandidates(ctx context.Context, season int, minMMR, maxMMR int, excludeUserID string, limit int) ([]domain.RatingLedger, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.FindCandidates")
	defer span.End()

	if limit <= 0 || limit > 100 {
		err := fmt.Errorf("invalid limit")
		reporting.Report(ctx, err, map[string]string{
			"limit": strconv.Itoa(limit),
		})
		return nil, err
	}

	rows := make([]dbLedger, 0, limit)
	// The window is centered on the searching player, so distance from the
	// midpoint is distance from them
	err := p.db.SelectContext(
		ctx,
		&rows,
		fmt.Sprintf(`SELECT %s FROM %s.rating_ledgers
		WHERE season = $1 AND mmr >= $2 AND mmr <= $3 AND user_id != $4
		ORDER BY ABS(mmr - ($2 + $3) / 2) ASC, user_id ASC
		LIMIT $5`,
			ledgerColumns, pq.QuoteIdentifier(p.schema)),
		season,
		minMMR,
		maxMMR,
		excludeUserID,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select candidates: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"season": strconv.Itoa(season),
			"minMMR": strconv.Itoa(minMMR),
			"maxMMR": strconv.Itoa(maxMMR),
		})
		return nil, err
	}

	candidates := make([]domain.RatingLedger, 0, len(rows))
	for _, row := range rows {
		ledger, err := p.dbLedgerToDomain(row)
		if err != nil {
			err := fmt.Errorf("failed to convert db ledger: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"userID": row.UserID,
				"season": strconv.Itoa(season),
			})
			return nil, err
		}
		candidates = append(candidates, ledger)
	}

	return candidates, nil
}
