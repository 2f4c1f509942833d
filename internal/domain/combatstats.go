package domain

// CombatStats is an immutable snapshot of a combatant's stat sheet, taken
// once at match time. Combat resolution only ever reads from these snapshots,
// so a finished match can be replayed even if the player's live stats change.
type CombatStats struct {
	Attack      int
	Defense     int
	MaxHP       int
	MaxResource int
	Speed       int

	CritChance     float64
	CritMultiplier float64
	Accuracy       float64
	DodgeChance    float64
	Penetration    float64
	Resistance     float64
	Lifesteal      float64
	Regen          float64
	Luck           float64

	// Display only, never used by the resolver
	Realm      string
	PowerLevel int
}
