package ports

import (
	"encoding/json"
	"time"

	"github.com/Amund211/ringside/internal/app"
	"github.com/Amund211/ringside/internal/domain"
)

type tierResponse struct {
	Name    string `json:"name"`
	MinMMR  int    `json:"minMmr"`
	MaxMMR  int    `json:"maxMmr"`
	Faction string `json:"faction,omitempty"`
}

type recentMatchResponse struct {
	MatchID       string    `json:"matchId"`
	OpponentName  string    `json:"opponentName"`
	OpponentIsBot bool      `json:"opponentIsBot"`
	Result        string    `json:"result"`
	MMRDelta      int       `json:"mmrDelta"`
	PlayedAt      time.Time `json:"playedAt"`
}

type rankResponse struct {
	UUID    string       `json:"uuid"`
	Season  int          `json:"season"`
	Faction string       `json:"faction,omitempty"`
	MMR     int          `json:"mmr"`
	Tier    tierResponse `json:"tier"`

	Placement struct {
		MatchesPlayed int  `json:"matchesPlayed"`
		Wins          int  `json:"wins"`
		IsPlaced      bool `json:"isPlaced"`
	} `json:"placement"`

	Record struct {
		Wins          int `json:"wins"`
		Losses        int `json:"losses"`
		Draws         int `json:"draws"`
		WinStreak     int `json:"winStreak"`
		LossStreak    int `json:"lossStreak"`
		BestWinStreak int `json:"bestWinStreak"`
	} `json:"record"`

	Highest struct {
		MMR  int          `json:"mmr"`
		Tier tierResponse `json:"tier"`
	} `json:"highest"`

	RecentMatches []recentMatchResponse `json:"recentMatches"`
}

func tierToResponse(tier domain.Tier) tierResponse {
	return tierResponse{
		Name:    tier.Name,
		MinMMR:  tier.MinMMR,
		MaxMMR:  tier.MaxMMR,
		Faction: string(tier.Faction),
	}
}

func ledgerToRankResponse(ledger domain.RatingLedger) rankResponse {
	response := rankResponse{
		UUID:    ledger.UserID,
		Season:  ledger.Season,
		Faction: string(ledger.Faction),
		MMR:     ledger.MMR,
		Tier:    tierToResponse(ledger.Tier),
	}

	response.Placement.MatchesPlayed = ledger.PlacementMatchesPlayed
	response.Placement.Wins = ledger.PlacementWins
	response.Placement.IsPlaced = ledger.IsPlaced

	response.Record.Wins = ledger.Wins
	response.Record.Losses = ledger.Losses
	response.Record.Draws = ledger.Draws
	response.Record.WinStreak = ledger.WinStreak
	response.Record.LossStreak = ledger.LossStreak
	response.Record.BestWinStreak = ledger.BestWinStreak

	response.Highest.MMR = ledger.HighestMMR
	response.Highest.Tier = tierToResponse(ledger.HighestTier)

	response.RecentMatches = make([]recentMatchResponse, 0, len(ledger.RecentMatches))
	for _, match := range ledger.RecentMatches {
		response.RecentMatches = append(response.RecentMatches, recentMatchResponse{
			MatchID:       match.MatchID,
			OpponentName:  match.OpponentName,
			OpponentIsBot: match.OpponentIsBot,
			Result:        string(match.Result),
			MMRDelta:      match.MMRDelta,
			PlayedAt:      match.PlayedAt,
		})
	}

	return response
}

type combatStatsResponse struct {
	Attack      int `json:"attack"`
	Defense     int `json:"defense"`
	MaxHP       int `json:"maxHp"`
	MaxResource int `json:"maxResource"`
	Speed       int `json:"speed"`

	CritChance     float64 `json:"critChance"`
	CritMultiplier float64 `json:"critMultiplier"`
	Accuracy       float64 `json:"accuracy"`
	DodgeChance    float64 `json:"dodgeChance"`
	Penetration    float64 `json:"penetration"`
	Resistance     float64 `json:"resistance"`
	Lifesteal      float64 `json:"lifesteal"`
	Regen          float64 `json:"regen"`
	Luck           float64 `json:"luck"`

	Realm      string `json:"realm,omitempty"`
	PowerLevel int    `json:"powerLevel,omitempty"`
}

func combatStatsToResponse(stats domain.CombatStats) combatStatsResponse {
	return combatStatsResponse{
		Attack:         stats.Attack,
		Defense:        stats.Defense,
		MaxHP:          stats.MaxHP,
		MaxResource:    stats.MaxResource,
		Speed:          stats.Speed,
		CritChance:     stats.CritChance,
		CritMultiplier: stats.CritMultiplier,
		Accuracy:       stats.Accuracy,
		DodgeChance:    stats.DodgeChance,
		Penetration:    stats.Penetration,
		Resistance:     stats.Resistance,
		Lifesteal:      stats.Lifesteal,
		Regen:          stats.Regen,
		Luck:           stats.Luck,
		Realm:          stats.Realm,
		PowerLevel:     stats.PowerLevel,
	}
}

type combatLogEntryResponse struct {
	Turn     int    `json:"turn"`
	Attacker string `json:"attacker"`

	Damage          int  `json:"damage"`
	IsCritical      bool `json:"isCritical"`
	IsDodged        bool `json:"isDodged"`
	LifestealHealed int  `json:"lifestealHealed"`
	RegenHealed     int  `json:"regenHealed"`

	Player1HP       int `json:"player1Hp"`
	Player2HP       int `json:"player2Hp"`
	Player1Resource int `json:"player1Resource"`
	Player2Resource int `json:"player2Resource"`

	Description string `json:"description"`
}

type matchSideResponse struct {
	UUID  string `json:"uuid,omitempty"`
	BotID string `json:"botId,omitempty"`
	IsBot bool   `json:"isBot"`
	Name  string `json:"name,omitempty"`

	MMRBefore int `json:"mmrBefore"`
	MMRDelta  int `json:"mmrDelta"`
}

type matchResponse struct {
	MatchID string `json:"matchId"`
	Season  int    `json:"season"`

	Player1 matchSideResponse `json:"player1"`
	Player2 matchSideResponse `json:"player2"`

	Winner     string    `json:"winner"`
	Seed       int64     `json:"seed"`
	TurnCount  int       `json:"turnCount"`
	DurationMS int64     `json:"durationMs"`
	PlayedAt   time.Time `json:"playedAt"`
}

type challengeResponse struct {
	Success bool `json:"success"`

	Match     matchResponse            `json:"match"`
	CombatLog []combatLogEntryResponse `json:"combatLog"`

	// The snapshots and the log are the replay contract with the renderer
	ChallengerSnapshot combatStatsResponse `json:"challengerSnapshot"`
	OpponentSnapshot   combatStatsResponse `json:"opponentSnapshot"`

	Rank rankResponse `json:"rank"`
}

func ChallengeResultToResponseData(result app.ChallengeResult) ([]byte, error) {
	match := matchResponse{
		MatchID: result.Match.MatchID,
		Season:  result.Match.Season,
		Player1: matchSideResponse{
			UUID:      result.Match.Player1UUID,
			MMRBefore: result.Match.Player1MMRBefore,
			MMRDelta:  result.Match.Player1MMRDelta,
		},
		Player2: matchSideResponse{
			UUID:      result.Opponent.UUID,
			BotID:     result.Opponent.BotID,
			IsBot:     result.Opponent.IsBot,
			Name:      result.Opponent.Name,
			MMRBefore: result.Match.Player2MMRBefore,
			MMRDelta:  result.Match.Player2MMRDelta,
		},
		Winner:     string(result.Match.Winner),
		Seed:       result.Match.Seed,
		TurnCount:  result.Match.TurnCount,
		DurationMS: result.Match.Duration.Milliseconds(),
		PlayedAt:   result.Match.PlayedAt,
	}

	combatLog := make([]combatLogEntryResponse, 0, len(result.Log))
	for _, entry := range result.Log {
		combatLog = append(combatLog, combatLogEntryResponse{
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

	return json.Marshal(challengeResponse{
		Success:            true,
		Match:              match,
		CombatLog:          combatLog,
		ChallengerSnapshot: combatStatsToResponse(result.ChallengerSnapshot),
		OpponentSnapshot:   combatStatsToResponse(result.OpponentSnapshot),
		Rank:               ledgerToRankResponse(result.Ledger),
	})
}

func LedgerToRankResponseData(ledger domain.RatingLedger) ([]byte, error) {
	return json.Marshal(struct {
		Success bool `json:"success"`
		rankResponse
	}{
		Success:      true,
		rankResponse: ledgerToRankResponse(ledger),
	})
}

type seasonResponse struct {
	Success bool `json:"success"`

	Number        int       `json:"number"`
	Name          string    `json:"name"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	DaysRemaining int       `json:"daysRemaining"`
}

func SeasonToResponseData(season domain.Season, now time.Time) ([]byte, error) {
	return json.Marshal(seasonResponse{
		Success:       true,
		Number:        season.Number,
		Name:          season.Name,
		StartDate:     season.StartDate,
		EndDate:       season.EndDate,
		DaysRemaining: season.DaysRemaining(now),
	})
}

type claimResponse struct {
	Success        bool `json:"success"`
	AlreadyClaimed bool `json:"alreadyClaimed"`

	Season int    `json:"season"`
	Tier   string `json:"tier"`

	Reward struct {
		Title string   `json:"title"`
		Gold  int      `json:"gold"`
		Items []string `json:"items"`
	} `json:"reward"`
}

func ClaimResultToResponseData(result app.ClaimResult) ([]byte, error) {
	response := claimResponse{
		Success:        true,
		AlreadyClaimed: result.AlreadyClaimed,
		Season:         result.Claim.Season,
		Tier:           result.Claim.TierName,
	}
	response.Reward.Title = result.Reward.Title
	response.Reward.Gold = result.Reward.Gold
	response.Reward.Items = result.Reward.Items
	return json.Marshal(response)
}
