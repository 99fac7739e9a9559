package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlock_Add(t *testing.T) {
	base := Block{MaxHP: 100, AD: 10, AP: 10, Armor: 5, MR: 5, Speed: 10, CritChance: 0.05, CritDamage: 1.5}
	equip := Block{MaxHP: 50, AD: 15, Armor: 3, CritChance: 0.1, CritDamage: 2.0}

	sum := base.Add(equip)

	assert.Equal(t, 150, sum.MaxHP)
	assert.Equal(t, 25, sum.AD)
	assert.Equal(t, 10, sum.AP)
	assert.Equal(t, 8, sum.Armor)
	assert.Equal(t, 5, sum.MR)
	assert.Equal(t, 10, sum.Speed)
	assert.InDelta(t, 0.15, sum.CritChance, 1e-9)
	// Crit damage does not stack additively.
	assert.InDelta(t, 1.5, sum.CritDamage, 1e-9)
}

func TestBlock_Scale(t *testing.T) {
	base := Block{MaxHP: 100, AD: 10, Armor: 5, Speed: 12, CritDamage: 1.5}
	scaling := Scaling{HPPerLevel: 10, ADPerLevel: 2.5, ArmorPerLevel: 1}

	scaled := base.Scale(4, scaling)

	assert.Equal(t, 140, scaled.MaxHP)
	assert.Equal(t, 20, scaled.AD)
	assert.Equal(t, 9, scaled.Armor)
	assert.Equal(t, 12, scaled.Speed)
	assert.InDelta(t, 1.5, scaled.CritDamage, 1e-9)
}

func TestBlock_ScaleZeroLevels(t *testing.T) {
	base := Block{MaxHP: 100, AD: 10}
	scaled := base.Scale(0, Scaling{HPPerLevel: 10, ADPerLevel: 2})
	assert.Equal(t, base, scaled)
}
