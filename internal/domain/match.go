package domain

import "time"

type Side string

const (
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

type Winner string

const (
	WinnerPlayer1 Winner = "player1"
	WinnerPlayer2 Winner = "player2"
	WinnerDraw    Winner = "draw"
)

// MatchRecord is the append-only record of one resolved arena match.
// Player2UUID is nil for bot matches; the bot is identified by BotID.
// Seed plus the two stat snapshots are enough to regenerate the combat log.
type MatchRecord struct {
	MatchID string
	Season  int

	Player1UUID  string
	Player2UUID  *string
	Player2IsBot bool
	BotID        string

	Player1MMRBefore int
	Player2MMRBefore int
	Player1MMRDelta  int
	Player2MMRDelta  int

	Winner    Winner
	Seed      int64
	TurnCount int
	Duration  time.Duration

	PlayedAt time.Time
}

// CombatLogEntry records a single turn. Each entry carries both sides'
// resulting HP and resource so the full log is self-contained: a renderer
// can replay the match from the log and the two starting snapshots alone.
type CombatLogEntry struct {
	Turn     int
	Attacker Side

	Damage          int
	IsCritical      bool
	IsDodged        bool
	LifestealHealed int
	RegenHealed     int

	Player1HP       int
	Player2HP       int
	Player1Resource int
	Player2Resource int

	Description string
}
