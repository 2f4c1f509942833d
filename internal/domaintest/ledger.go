package domaintest

import (
	"time"

	"github.com/Amund211/ringside/internal/domain"
)

type ledgerBuilder struct {
	ledger *domain.RatingLedger
	table  domain.TierTable
}

func (lb *ledgerBuilder) WithMMR(mmr int) *ledgerBuilder {
	lb.ledger.MMR = mmr
	lb.ledger.RecomputeTier(lb.table)
	return lb
}

func (lb *ledgerBuilder) WithFaction(faction domain.Faction) *ledgerBuilder {
	lb.ledger.Faction = faction
	lb.ledger.RecomputeTier(lb.table)
	return lb
}

func (lb *ledgerBuilder) Build() domain.RatingLedger {
	return *lb.ledger
}

func NewLedgerBuilder(userID string, season int, table domain.TierTable, now time.Time) *ledgerBuilder {
	ledger := domain.NewRatingLedger(userID, season, domain.FactionNone, table, now)
	return &ledgerBuilder{
		ledger: &ledger,
		table:  table,
	}
}

// NewCombatStats returns a serviceable mid-ladder stat sheet. Tests tweak
// individual fields as needed.
func NewCombatStats() domain.CombatStats {
	return domain.CombatStats{
		Attack:         100,
		Defense:        80,
		MaxHP:          1000,
		MaxResource:    100,
		Speed:          50,
		CritChance:     0.1,
		CritMultiplier: 1.5,
		Accuracy:       0.9,
		DodgeChance:    0.1,
		Penetration:    0.1,
		Resistance:     0.1,
		Lifesteal:      0.05,
		Regen:          0.01,
		Luck:           10,
		Realm:          "Trúc Cơ",
		PowerLevel:     1200,
	}
}
