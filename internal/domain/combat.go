package domain

import (
	"fmt"
	"math/rand"
)

// MaxCombatTurns bounds resolver cost; a fight still undecided at the cap is
// declared a draw.
const MaxCombatTurns = 100

const strikeResourceCost = 10

// CombatOutcome is the verdict of one resolved fight plus the full ordered
// log. Given the same two snapshots and the same seed the outcome is
// byte-for-byte identical on every run.
type CombatOutcome struct {
	Winner    Winner
	Log       []CombatLogEntry
	TurnCount int

	Player1DamageDealt int
	Player2DamageDealt int
}

type combatant struct {
	side     Side
	stats    CombatStats
	hp       int
	resource int
}

func (c *combatant) regenerate() int {
	healed := int(float64(c.stats.MaxHP) * c.stats.Regen)
	if c.hp+healed > c.stats.MaxHP {
		healed = c.stats.MaxHP - c.hp
	}
	c.hp += healed

	c.resource += int(float64(c.stats.MaxResource) * c.stats.Regen)
	if c.resource > c.stats.MaxResource {
		c.resource = c.stats.MaxResource
	}

	return healed
}

func hitChance(attacker, defender CombatStats) float64 {
	chance := attacker.Accuracy - defender.DodgeChance
	if chance < 0.05 {
		chance = 0.05
	}
	if chance > 0.95 {
		chance = 0.95
	}
	return chance
}

func critChance(attacker CombatStats) float64 {
	chance := attacker.CritChance + attacker.Luck/1000
	if chance > 1 {
		chance = 1
	}
	return chance
}

// baseDamage computes the damage of a landed, non-critical strike.
// Mitigation follows attack^2/(attack+effectiveDefense), where penetration
// shaves the defender's defense and resistance scales it back up. The result
// is floored at 1 so any landed hit makes progress and combat terminates.
func baseDamage(attacker, defender CombatStats) int {
	effectiveDefense := float64(defender.Defense) * (1 - attacker.Penetration) * (1 + defender.Resistance)
	if effectiveDefense < 0 {
		effectiveDefense = 0
	}

	attack := float64(attacker.Attack)
	damage := int(attack * attack / (attack + effectiveDefense))
	if damage < 1 {
		damage = 1
	}
	return damage
}

// ResolveCombat deterministically simulates a fight between two snapshots.
// All probabilistic rolls are drawn from rng, so callers must construct it
// from a per-match seed and never share it across matches.
//
// Turn policy (fixed, relied upon by log replay): the faster snapshot acts on
// even turn indices and sides strictly alternate; a speed tie goes to
// player1, the challenger. Each turn the attacker first regenerates HP and
// resource, then strikes: dodge roll, crit roll on a landed hit, lifesteal on
// damage dealt. A strike costs resource; an attacker with an empty pool can
// only land a weakened strike at half damage.
func ResolveCombat(player1, player2 CombatStats, rng *rand.Rand) CombatOutcome {
	first := &combatant{side: SidePlayer1, stats: player1, hp: player1.MaxHP, resource: player1.MaxResource}
	second := &combatant{side: SidePlayer2, stats: player2, hp: player2.MaxHP, resource: player2.MaxResource}
	if player2.Speed > player1.Speed {
		first, second = second, first
	}

	outcome := CombatOutcome{
		Winner: WinnerDraw,
		Log:    make([]CombatLogEntry, 0, MaxCombatTurns),
	}

	damageDealt := map[Side]*int{
		SidePlayer1: &outcome.Player1DamageDealt,
		SidePlayer2: &outcome.Player2DamageDealt,
	}

	for turn := 0; turn < MaxCombatTurns; turn++ {
		attacker, defender := first, second
		if turn%2 == 1 {
			attacker, defender = second, first
		}

		regenHealed := attacker.regenerate()

		entry := CombatLogEntry{
			Turn:        turn + 1,
			Attacker:    attacker.side,
			RegenHealed: regenHealed,
		}

		if rng.Float64() >= hitChance(attacker.stats, defender.stats) {
			entry.IsDodged = true
			entry.Description = fmt.Sprintf("%s dodged the strike", defender.side)
		} else {
			damage := baseDamage(attacker.stats, defender.stats)

			weakened := attacker.resource < strikeResourceCost
			if weakened {
				damage = damage / 2
				if damage < 1 {
					damage = 1
				}
			} else {
				attacker.resource -= strikeResourceCost

				if rng.Float64() < critChance(attacker.stats) {
					damage = int(float64(damage) * attacker.stats.CritMultiplier)
					entry.IsCritical = true
				}
			}

			healed := int(float64(damage) * attacker.stats.Lifesteal)
			if attacker.hp+healed > attacker.stats.MaxHP {
				healed = attacker.stats.MaxHP - attacker.hp
			}
			attacker.hp += healed

			defender.hp -= damage

			entry.Damage = damage
			entry.LifestealHealed = healed
			switch {
			case entry.IsCritical:
				entry.Description = fmt.Sprintf("%s landed a critical strike for %d damage", attacker.side, damage)
			case weakened:
				entry.Description = fmt.Sprintf("%s was exhausted and struck weakly for %d damage", attacker.side, damage)
			default:
				entry.Description = fmt.Sprintf("%s struck for %d damage", attacker.side, damage)
			}

			*damageDealt[attacker.side] += damage
		}

		entry.Player1HP, entry.Player1Resource = sideState(first, second, SidePlayer1)
		entry.Player2HP, entry.Player2Resource = sideState(first, second, SidePlayer2)

		outcome.Log = append(outcome.Log, entry)
		outcome.TurnCount = turn + 1

		if defender.hp <= 0 {
			if attacker.side == SidePlayer1 {
				outcome.Winner = WinnerPlayer1
			} else {
				outcome.Winner = WinnerPlayer2
			}
			break
		}
	}

	return outcome
}

func sideState(first, second *combatant, side Side) (hp int, resource int) {
	c := first
	if second.side == side {
		c = second
	}
	if c.hp < 0 {
		return 0, c.resource
	}
	return c.hp, c.resource
}
