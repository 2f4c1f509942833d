package gameconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing version", `{"tiers": [{"name": "a", "minMmr": 0, "maxMmr": -1}]}`},
		{"empty tier table", `{"version": 1, "tiers": []}`},
		{"bot with unknown tier", `{
			"version": 1,
			"tiers": [{"name": "a", "minMmr": 0, "maxMmr": -1}],
			"baselineStats": {"attack": 10, "maxHp": 100},
			"bots": [{"id": "b1", "name": "b", "tier": "nope", "statMultiplier": 1, "mmrChangeRate": 0.5}]
		}`},
		{"bot with zero change rate", `{
			"version": 1,
			"tiers": [{"name": "a", "minMmr": 0, "maxMmr": -1}],
			"baselineStats": {"attack": 10, "maxHp": 100},
			"bots": [{"id": "b1", "name": "b", "tier": "a", "statMultiplier": 1, "mmrChangeRate": 0}]
		}`},
		{"unusable baseline", `{
			"version": 1,
			"tiers": [{"name": "a", "minMmr": 0, "maxMmr": -1}],
			"baselineStats": {"attack": 0, "maxHp": 0}
		}`},
		{"reward with unknown tier", `{
			"version": 1,
			"tiers": [{"name": "a", "minMmr": 0, "maxMmr": -1}],
			"baselineStats": {"attack": 10, "maxHp": 100},
			"rewards": [{"tier": "nope", "title": "t", "gold": 1}]
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}
