package domain_test

import (
	"fmt"
	"testing"

	"github.com/Amund211/ringside/internal/domain"
	"github.com/stretchr/testify/require"
)

func testTierTable(t *testing.T) domain.TierTable {
	t.Helper()

	table, err := domain.NewTierTable([]domain.Tier{
		{Name: "Phàm Nhân", MinMMR: 0, MaxMMR: 999},
		{Name: "Tu Sĩ", MinMMR: 1000, MaxMMR: 1299},
		{Name: "Trúc Cơ", MinMMR: 1300, MaxMMR: 1599},
		{Name: "Kim Đan", MinMMR: 1600, MaxMMR: 1899},
		{Name: "Nguyên Anh", MinMMR: 1900, MaxMMR: 2199},
		{Name: "Đại Thừa", MinMMR: 2200, MaxMMR: -1},
		{Name: "Tiên Quân", MinMMR: 2200, MaxMMR: -1, Faction: domain.FactionChinhDao},
		{Name: "Ma Tôn", MinMMR: 2200, MaxMMR: -1, Faction: domain.FactionMaDao},
	})
	require.NoError(t, err)
	return table
}

func TestTierForMMR(t *testing.T) {
	table := testTierTable(t)

	tests := []struct {
		mmr     int
		faction domain.Faction
		name    string
	}{
		{0, domain.FactionNone, "Phàm Nhân"},
		{999, domain.FactionNone, "Phàm Nhân"},
		{1000, domain.FactionNone, "Tu Sĩ"},
		{1299, domain.FactionNone, "Tu Sĩ"},
		{1300, domain.FactionNone, "Trúc Cơ"},
		{2199, domain.FactionNone, "Nguyên Anh"},
		{2200, domain.FactionNone, "Đại Thừa"},
		{9999, domain.FactionNone, "Đại Thừa"},
		{2200, domain.FactionChinhDao, "Tiên Quân"},
		{2200, domain.FactionMaDao, "Ma Tôn"},
		// Faction only matters at the split band
		{1000, domain.FactionMaDao, "Tu Sĩ"},
		// Negative mmr is treated as 0
		{-5, domain.FactionNone, "Phàm Nhân"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d (%s)", tt.mmr, tt.faction), func(t *testing.T) {
			tier := table.TierForMMR(tt.mmr, tt.faction)
			require.Equal(t, tt.name, tier.Name)
			if tt.mmr >= 0 {
				require.True(t, tier.Contains(tt.mmr))
			}
		})
	}
}

func TestTierForMMRIsMonotone(t *testing.T) {
	table := testTierTable(t)

	previousFloor := -1
	for mmr := 0; mmr <= 3000; mmr++ {
		tier := table.TierForMMR(mmr, domain.FactionNone)
		require.True(t, tier.Contains(mmr), "tier %s does not contain mmr %d", tier.Name, mmr)
		require.GreaterOrEqual(t, tier.MinMMR, previousFloor, "tier floor moved down at mmr %d", mmr)
		previousFloor = tier.MinMMR
	}
}

func TestNewTierTableValidation(t *testing.T) {
	tests := []struct {
		name  string
		tiers []domain.Tier
	}{
		{"empty", []domain.Tier{}},
		{"does not start at 0", []domain.Tier{{Name: "a", MinMMR: 100, MaxMMR: -1}}},
		{"gap between tiers", []domain.Tier{
			{Name: "a", MinMMR: 0, MaxMMR: 999},
			{Name: "b", MinMMR: 1100, MaxMMR: -1},
		}},
		{"bounded top tier", []domain.Tier{
			{Name: "a", MinMMR: 0, MaxMMR: 999},
			{Name: "b", MinMMR: 1000, MaxMMR: 1999},
		}},
		{"unnamed tier", []domain.Tier{
			{Name: "", MinMMR: 0, MaxMMR: -1},
		}},
		{"duplicate faction in split", []domain.Tier{
			{Name: "a", MinMMR: 0, MaxMMR: -1},
			{Name: "b", MinMMR: 0, MaxMMR: -1},
		}},
		{"parallel tracks with different ranges", []domain.Tier{
			{Name: "a", MinMMR: 0, MaxMMR: 999},
			{Name: "b", MinMMR: 1000, MaxMMR: -1},
			{Name: "c", MinMMR: 1000, MaxMMR: 2000, Faction: domain.FactionMaDao},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewTierTable(tt.tiers)
			require.Error(t, err)
		})
	}
}

func TestTierTableByName(t *testing.T) {
	table := testTierTable(t)

	tier, found := table.ByName("Kim Đan")
	require.True(t, found)
	require.Equal(t, 1600, tier.MinMMR)

	_, found = table.ByName("does not exist")
	require.False(t, found)
}
