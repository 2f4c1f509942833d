package matchrepository

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
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db     *sqlx.DB
	schema string
	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("ringside/matchrepository/postgres")
	return &Postgres{
		db:     db,
		schema: schema,
		tracer: tracer,
	}
}

type combatLogEntryStorage struct {
	Turn     int    `json:"t"`
	Attacker string `json:"a"`

	Damage          int  `json:"dmg"`
	IsCritical      bool `json:"crit,omitempty"`
	IsDodged        bool `json:"dodge,omitempty"`
	LifestealHealed int  `json:"ls,omitempty"`
	RegenHealed     int  `json:"regen,omitempty"`

	Player1HP       int `json:"hp1"`
	Player2HP       int `json:"hp2"`
	Player1Resource int `json:"res1"`
	Player2Resource int `json:"res2"`

	Description string `json:"desc,omitempty"`
}

type dbMatch struct {
	ID     string `db:"id"`
	Season int    `db:"season"`

	Player1UUID  string         `db:"player1_uuid"`
	Player2UUID  sql.NullString `db:"player2_uuid"`
	Player2IsBot bool           `db:"player2_is_bot"`
	BotID        string         `db:"bot_id"`

	Player1MMRBefore int `db:"player1_mmr_before"`
	Player2MMRBefore int `db:"player2_mmr_before"`
	Player1MMRDelta  int `db:"player1_mmr_delta"`
	Player2MMRDelta  int `db:"player2_mmr_delta"`

	Winner     string `db:"winner"`
	Seed       int64  `db:"seed"`
	TurnCount  int    `db:"turn_count"`
	DurationMS int64  `db:"duration_ms"`

	CombatLog []byte `db:"combat_log"`

	PlayedAt time.Time `db:"played_at"`
}

const matchColumns = `id, season, player1_uuid, player2_uuid, player2_is_bot, bot_id,
	player1_mmr_before, player2_mmr_before, player1_mmr_delta, player2_mmr_delta,
	winner, seed, turn_count, duration_ms, combat_log, played_at`

func combatLogToStorage(log []domain.CombatLogEntry) ([]byte, error) {
	stored := make([]combatLogEntryStorage, 0, len(log))
	for _, entry := range log {
		stored = append(stored, combatLogEntryStorage{
			Turn:            entry.Turn,
			Attacker:        string(entry.Attacker),
			Damage:          entry.Damage,
			IsCritical:      entry.IsCritical,
			IsDodged:        entry.IsDodged,
			LifestealHealed: entry.LifestealHealed,
			RegenHealed:     entry.RegenHealed,
			Player1HP:       entry.Player1HP,
			Player2HP:       entry.Player2HP,
			Player1Resource: entry.Player1Resource,
			Player2Resource: entry.Player2Resource,
			Description:     entry.Description,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal combat log: %w", err)
	}
	return data, nil
}

func combatLogFromStorage(data []byte) ([]domain.CombatLogEntry, error) {
	var stored []combatLogEntryStorage
	err := json.Unmarshal(data, &stored)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal combat log: %w", err)
	}

	log := make([]domain.CombatLogEntry, 0, len(stored))
	for _, entry := range stored {
		log = append(log, domain.CombatLogEntry{
			Turn:            entry.Turn,
			Attacker:        domain.Side(entry.Attacker),
			Damage:          entry.Damage,
			IsCritical:      entry.IsCritical,
			IsDodged:        entry.IsDodged,
			LifestealHealed: entry.LifestealHealed,
			RegenHealed:     entry.RegenHealed,
			Player1HP:       entry.Player1HP,
			Player2HP:       entry.Player2HP,
			Player1Resource: entry.Player1Resource,
			Player2Resource: entry.Player2Resource,
			Description:     entry.Description,
		})
	}
	return log, nil
}

func dbMatchToDomain(row dbMatch) domain.MatchRecord {
	var player2UUID *string
	if row.Player2UUID.Valid {
		player2UUID = &row.Player2UUID.String
	}

	return domain.MatchRecord{
		MatchID: row.ID,
		Season:  row.Season,

		Player1UUID:  row.Player1UUID,
		Player2UUID:  player2UUID,
		Player2IsBot: row.Player2IsBot,
		BotID:        row.BotID,

		Player1MMRBefore: row.Player1MMRBefore,
		Player2MMRBefore: row.Player2MMRBefore,
		Player1MMRDelta:  row.Player1MMRDelta,
		Player2MMRDelta:  row.Player2MMRDelta,

		Winner:    domain.Winner(row.Winner),
		Seed:      row.Seed,
		TurnCount: row.TurnCount,
		Duration:  time.Duration(row.DurationMS) * time.Millisecond,

		PlayedAt: row.PlayedAt,
	}
}

func (p *Postgres) StoreMatch(ctx context.Context, match domain.MatchRecord, log []domain.CombatLogEntry) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreMatch")
	defer span.End()

	if !strutils.UUIDIsNormalized(match.Player1UUID) {
		err := fmt.Errorf("player1 uuid is not normalized")
		reporting.Report(ctx, err, map[string]string{
			"uuid": match.Player1UUID,
		})
		return err
	}
	if match.Player2UUID != nil && !strutils.UUIDIsNormalized(*match.Player2UUID) {
		err := fmt.Errorf("player2 uuid is not normalized")
		reporting.Report(ctx, err, map[string]string{
			"uuid": *match.Player2UUID,
		})
		return err
	}

	combatLog, err := combatLogToStorage(log)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"matchID": match.MatchID,
		})
		return err
	}

	var player2UUID sql.NullString
	if match.Player2UUID != nil {
		player2UUID = sql.NullString{String: *match.Player2UUID, Valid: true}
	}

	_, err = p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.matches
		(id, season, player1_uuid, player2_uuid, player2_is_bot, bot_id,
			player1_mmr_before, player2_mmr_before, player1_mmr_delta, player2_mmr_delta,
			winner, seed, turn_count, duration_ms, combat_log, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			pq.QuoteIdentifier(p.schema)),
		match.MatchID,
		match.Season,
		match.Player1UUID,
		player2UUID,
		match.Player2IsBot,
		match.BotID,
		match.Player1MMRBefore,
		match.Player2MMRBefore,
		match.Player1MMRDelta,
		match.Player2MMRDelta,
		string(match.Winner),
		match.Seed,
		match.TurnCount,
		match.Duration.Milliseconds(),
		combatLog,
		match.PlayedAt,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert match: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"matchID": match.MatchID,
			"season":  strconv.Itoa(match.Season),
		})
		return err
	}

	return nil
}

func (p *Postgres) GetMatch(ctx context.Context, matchID string) (domain.MatchRecord, []domain.CombatLogEntry, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetMatch")
	defer span.End()

	var row dbMatch
	err := p.db.GetContext(
		ctx,
		&row,
		fmt.Sprintf(`SELECT %s FROM %s.matches WHERE id = $1`, matchColumns, pq.QuoteIdentifier(p.schema)),
		matchID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchRecord{}, nil, domain.ErrMatchNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to select match: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"matchID": matchID,
		})
		return domain.MatchRecord{}, nil, err
	}

	log, err := combatLogFromStorage(row.CombatLog)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"matchID": matchID,
		})
		return domain.MatchRecord{}, nil, err
	}

	return dbMatchToDomain(row), log, nil
}

func (p *Postgres) GetRecentMatches(ctx context.Context, season int, userID string, limit int) ([]domain.MatchRecord, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetRecentMatches")
	defer span.End()

	if limit <= 0 || limit > 100 {
		err := fmt.Errorf("invalid limit")
		reporting.Report(ctx, err, map[string]string{
			"limit": strconv.Itoa(limit),
		})
		return nil, err
	}

	rows := make([]dbMatch, 0, limit)
	err := p.db.SelectContext(
		ctx,
		&rows,
		fmt.Sprintf(`SELECT %s FROM %s.matches
		WHERE season = $1 AND (player1_uuid = $2 OR player2_uuid = $2)
		ORDER BY played_at DESC
		LIMIT $3`,
			matchColumns, pq.QuoteIdentifier(p.schema)),
		season,
		userID,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select recent matches: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"userID": userID,
			"season": strconv.Itoa(season),
		})
		return nil, err
	}

	matches := make([]domain.MatchRecord, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, dbMatchToDomain(row))
	}

	return matches, nil
}
