package domain

import (
	"fmt"
)

type Faction string

const (
	FactionNone     Faction = ""
	FactionChinhDao Faction = "chinh_dao"
	FactionMaDao    Faction = "ma_dao"
)

// Tier is a named MMR band. MaxMMR < 0 means the band is open-ended.
// The top band may appear multiple times with different factions (parallel
// tracks at the same MMR range).
type Tier struct {
	Name    string
	MinMMR  int
	MaxMMR  int
	Faction Faction
}

func (t Tier) Contains(mmr int) bool {
	if mmr < t.MinMMR {
		return false
	}
	return t.MaxMMR < 0 || mmr <= t.MaxMMR
}

type TierTable struct {
	// Sorted by MinMMR ascending
	tiers []Tier
}

func NewTierTable(tiers []Tier) (TierTable, error) {
	if len(tiers) == 0 {
		return TierTable{}, fmt.Errorf("tier table is empty")
	}

	if tiers[0].MinMMR != 0 {
		return TierTable{}, fmt.Errorf("lowest tier %s must start at 0, got %d", tiers[0].Name, tiers[0].MinMMR)
	}

	for i, tier := range tiers {
		if tier.Name == "" {
			return TierTable{}, fmt.Errorf("tier %d has no name", i)
		}

		if i == 0 {
			continue
		}

		prev := tiers[i-1]
		if tier.MinMMR == prev.MinMMR {
			// Parallel faction tracks share a band
			if tier.MaxMMR != prev.MaxMMR {
				return TierTable{}, fmt.Errorf("parallel tiers %s and %s cover different ranges", prev.Name, tier.Name)
			}
			if tier.Faction == prev.Faction {
				return TierTable{}, fmt.Errorf("tiers %s and %s share a band and a faction", prev.Name, tier.Name)
			}
			continue
		}

		if tier.MinMMR < prev.MinMMR {
			return TierTable{}, fmt.Errorf("tiers are not sorted: %s starts below %s", tier.Name, prev.Name)
		}
		if prev.MaxMMR != tier.MinMMR-1 {
			return TierTable{}, fmt.Errorf("gap between tiers %s and %s", prev.Name, tier.Name)
		}
	}

	last := tiers[len(tiers)-1]
	if last.MaxMMR >= 0 {
		return TierTable{}, fmt.Errorf("highest tier %s must be open-ended", last.Name)
	}

	copied := make([]Tier, len(tiers))
	copy(copied, tiers)

	return TierTable{tiers: copied}, nil
}

// TierForMMR returns the tier containing mmr. When multiple parallel tracks
// cover the band, the track matching faction wins; a ledger with no faction
// assigned falls back to the factionless track of the split.
func (t TierTable) TierForMMR(mmr int, faction Faction) Tier {
	if mmr < 0 {
		mmr = 0
	}

	var fallback *Tier
	for i := len(t.tiers) - 1; i >= 0; i-- {
		tier := t.tiers[i]
		if !tier.Contains(mmr) {
			continue
		}

		if tier.Faction == faction {
			return tier
		}
		if tier.Faction == FactionNone {
			fallback = &t.tiers[i]
		}
	}

	if fallback != nil {
		return *fallback
	}

	// NewTierTable guarantees full coverage of [0, inf)
	panic(fmt.Sprintf("logic error: no tier for mmr %d", mmr))
}

func (t TierTable) Tiers() []Tier {
	copied := make([]Tier, len(t.tiers))
	copy(copied, t.tiers)
	return copied
}

func (t TierTable) ByName(name string) (Tier, bool) {
	for _, tier := range t.tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return Tier{}, false
}
