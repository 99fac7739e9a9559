// Package stats provides the immutable statistic value types shared by
// players, monsters and item blueprints. A Block never mutates in place;
// composition (equipment, level scaling, temporary buffs) always produces
// a new value.
package stats

// Block is an immutable set of combat statistics. Used for base stats,
// equipment bonuses and calculated totals.
type Block struct {
	MaxHP      int     `json:"maxHp"`
	AD         int     `json:"ad"`
	AP         int     `json:"ap"`
	Armor      int     `json:"armor"`
	MR         int     `json:"mr"`
	Speed      int     `json:"speed"`
	CritChance float64 `json:"critChance"`
	CritDamage float64 `json:"critDamage"`
}

// Add returns the pointwise sum of two blocks. CritDamage does not stack
// additively; the receiver's value wins.
func (b Block) Add(other Block) Block {
	return Block{
		MaxHP:      b.MaxHP + other.MaxHP,
		AD:         b.AD + other.AD,
		AP:         b.AP + other.AP,
		Armor:      b.Armor + other.Armor,
		MR:         b.MR + other.MR,
		Speed:      b.Speed + other.Speed,
		CritChance: b.CritChance + other.CritChance,
		CritDamage: b.CritDamage,
	}
}

// Scale applies per-level scaling on top of the base block. Speed, crit
// chance and crit damage do not scale with level.
func (b Block) Scale(level int, s Scaling) Block {
	return Block{
		MaxHP:      b.MaxHP + int(s.HPPerLevel*float64(level)),
		AD:         b.AD + int(s.ADPerLevel*float64(level)),
		AP:         b.AP + int(s.APPerLevel*float64(level)),
		Armor:      b.Armor + int(s.ArmorPerLevel*float64(level)),
		MR:         b.MR + int(s.MRPerLevel*float64(level)),
		Speed:      b.Speed,
		CritChance: b.CritChance,
		CritDamage: b.CritDamage,
	}
}

// Scaling holds per-level growth factors for a blueprint.
type Scaling struct {
	HPPerLevel    float64 `json:"hpPerLevel"`
	ADPerLevel    float64 `json:"adPerLevel"`
	APPerLevel    float64 `json:"apPerLevel"`
	ArmorPerLevel float64 `json:"armorPerLevel"`
	MRPerLevel    float64 `json:"mrPerLevel"`
}
