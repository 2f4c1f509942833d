// Package gameconfig holds the versioned arena game data: the tier table,
// the bot roster and the season reward table. The data is embedded at build
// time and loaded into an immutable structure at startup; changing it is a
// deployment concern, not a runtime code change.
package gameconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Amund211/ringside/internal/domain"
)

//go:embed arena.json
var embeddedConfig []byte

// Bot is a fabricated opponent. Its stats are the baseline template scaled
// by StatMultiplier; MMRChangeRate dampens rating updates from bot matches
// so they move the ladder more slowly than human matches.
type Bot struct {
	ID             string
	Name           string
	TierName       string
	StatMultiplier float64
	MMRChangeRate  float64
}

type GameConfig struct {
	version int

	tierTable domain.TierTable
	baseline  domain.CombatStats
	bots      []Bot
	rewards   []domain.TierReward
}

type configFile struct {
	Version int `json:"version"`

	Tiers []struct {
		Name    string         `json:"name"`
		MinMMR  int            `json:"minMmr"`
		MaxMMR  int            `json:"maxMmr"`
		Faction domain.Faction `json:"faction,omitempty"`
	} `json:"tiers"`

	BaselineStats struct {
		Attack         int     `json:"attack"`
		Defense        int     `json:"defense"`
		MaxHP          int     `json:"maxHp"`
		MaxResource    int     `json:"maxResource"`
		Speed          int     `json:"speed"`
		CritChance     float64 `json:"critChance"`
		CritMultiplier float64 `json:"critMultiplier"`
		Accuracy       float64 `json:"accuracy"`
		DodgeChance    float64 `json:"dodgeChance"`
		Penetration    float64 `json:"penetration"`
		Resistance     float64 `json:"resistance"`
		Lifesteal      float64 `json:"lifesteal"`
		Regen          float64 `json:"regen"`
		Luck           float64 `json:"luck"`
	} `json:"baselineStats"`

	Bots []struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		Tier           string  `json:"tier"`
		StatMultiplier float64 `json:"statMultiplier"`
		MMRChangeRate  float64 `json:"mmrChangeRate"`
	} `json:"bots"`

	Rewards []struct {
		Tier    string         `json:"tier"`
		Faction domain.Faction `json:"faction,omitempty"`
		Title   string         `json:"title"`
		Gold    int            `json:"gold"`
		Items   []string       `json:"items"`
	} `json:"rewards"`
}

func Load() (GameConfig, error) {
	return parse(embeddedConfig)
}

func parse(data []byte) (GameConfig, error) {
	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return GameConfig{}, fmt.Errorf("failed to parse game config: %w", err)
	}

	if file.Version <= 0 {
		return GameConfig{}, fmt.Errorf("game config has no version")
	}

	tiers := make([]domain.Tier, 0, len(file.Tiers))
	for _, tier := range file.Tiers {
		tiers = append(tiers, domain.Tier{
			Name:    tier.Name,
			MinMMR:  tier.MinMMR,
			MaxMMR:  tier.MaxMMR,
			Faction: tier.Faction,
		})
	}
	tierTable, err := domain.NewTierTable(tiers)
	if err != nil {
		return GameConfig{}, fmt.Errorf("invalid tier table: %w", err)
	}

	baseline := domain.CombatStats{
		Attack:         file.BaselineStats.Attack,
		Defense:        file.BaselineStats.Defense,
		MaxHP:          file.BaselineStats.MaxHP,
		MaxResource:    file.BaselineStats.MaxResource,
		Speed:          file.BaselineStats.Speed,
		CritChance:     file.BaselineStats.CritChance,
		CritMultiplier: file.BaselineStats.CritMultiplier,
		Accuracy:       file.BaselineStats.Accuracy,
		DodgeChance:    file.BaselineStats.DodgeChance,
		Penetration:    file.BaselineStats.Penetration,
		Resistance:     file.BaselineStats.Resistance,
		Lifesteal:      file.BaselineStats.Lifesteal,
		Regen:          file.BaselineStats.Regen,
		Luck:           file.BaselineStats.Luck,
	}
	if baseline.Attack <= 0 || baseline.MaxHP <= 0 {
		return GameConfig{}, fmt.Errorf("baseline stats are unusable: attack=%d maxHp=%d", baseline.Attack, baseline.MaxHP)
	}

	bots := make([]Bot, 0, len(file.Bots))
	for _, bot := range file.Bots {
		if bot.ID == "" || bot.Name == "" {
			return GameConfig{}, fmt.Errorf("bot missing id or name: %+v", bot)
		}
		if _, found := tierTable.ByName(bot.Tier); !found {
			return GameConfig{}, fmt.Errorf("bot %s references unknown tier %s", bot.ID, bot.Tier)
		}
		if bot.StatMultiplier <= 0 {
			return GameConfig{}, fmt.Errorf("bot %s has non-positive stat multiplier", bot.ID)
		}
		if bot.MMRChangeRate <= 0 || bot.MMRChangeRate > 1 {
			return GameConfig{}, fmt.Errorf("bot %s has mmr change rate outside (0, 1]", bot.ID)
		}
		bots = append(bots, Bot{
			ID:             bot.ID,
			Name:           bot.Name,
			TierName:       bot.Tier,
			StatMultiplier: bot.StatMultiplier,
			MMRChangeRate:  bot.MMRChangeRate,
		})
	}

	rewards := make([]domain.TierReward, 0, len(file.Rewards))
	for _, reward := range file.Rewards {
		if _, found := tierTable.ByName(reward.Tier); !found {
			return GameConfig{}, fmt.Errorf("reward references unknown tier %s", reward.Tier)
		}
		rewards = append(rewards, domain.TierReward{
			TierName: reward.Tier,
			Faction:  reward.Faction,
			Title:    reward.Title,
			Gold:     reward.Gold,
			Items:    reward.Items,
		})
	}

	return GameConfig{
		version:   file.Version,
		tierTable: tierTable,
		baseline:  baseline,
		bots:      bots,
		rewards:   rewards,
	}, nil
}

func (c GameConfig) Version() int {
	return c.version
}

func (c GameConfig) TierTable() domain.TierTable {
	return c.tierTable
}

func (c GameConfig) BaselineStats() domain.CombatStats {
	return c.baseline
}

// BotForTier returns the roster bot for the given tier. The top-tier faction
// split is handled by tier identity: each faction track is its own named
// tier with its own bot.
func (c GameConfig) BotForTier(tier domain.Tier) (Bot, bool) {
	for _, bot := range c.bots {
		if bot.TierName == tier.Name {
			return bot, true
		}
	}
	return Bot{}, false
}

func (c GameConfig) Bots() []Bot {
	copied := make([]Bot, len(c.bots))
	copy(copied, c.bots)
	return copied
}

// BotStats scales the baseline template by the bot's stat multiplier.
// Probabilities are taken from the template unscaled.
func (c GameConfig) BotStats(bot Bot) domain.CombatStats {
	stats := c.baseline
	stats.Attack = int(float64(stats.Attack) * bot.StatMultiplier)
	stats.Defense = int(float64(stats.Defense) * bot.StatMultiplier)
	stats.MaxHP = int(float64(stats.MaxHP) * bot.StatMultiplier)
	stats.MaxResource = int(float64(stats.MaxResource) * bot.StatMultiplier)
	stats.Speed = int(float64(stats.Speed) * bot.StatMultiplier)
	stats.Realm = bot.TierName
	stats.PowerLevel = int(1000 * bot.StatMultiplier)
	return stats
}

// RewardFor returns the season reward for finishing in the given tier.
// Faction-specific rewards take precedence over the factionless entry for
// the same tier name.
func (c GameConfig) RewardFor(tier domain.Tier) (domain.TierReward, bool) {
	var fallback *domain.TierReward
	for i, reward := range c.rewards {
		if reward.TierName != tier.Name {
			continue
		}
		if reward.Faction == tier.Faction {
			return reward, true
		}
		if reward.Faction == domain.FactionNone {
			fallback = &c.rewards[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.TierReward{}, false
}
