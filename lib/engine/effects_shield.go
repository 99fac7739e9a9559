package engine

import (
	"github.com/echoesrpg/echoes-server/lib/combat"
)

func init() {
	register("shield", effectShield)
	register("remove_shield", effectRemoveShield)
}

// effectShield grants formula-based shield to the target. Shield stacks
// additively and absorbs before mitigation.
//
// Params: formula, label.
func effectShield(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	formulaExpr := paramString(params, "formula", "0")
	label := paramString(params, "label", "shield")

	amount := int(b.Eval(formulaExpr, src, tgt))
	if amount <= 0 {
		return nil
	}

	entity := tgt.Base()
	entity.Gauges[combat.GaugeShield] += amount
	b.Logf("%s gains %d %s (total: %d)", entity.Name, amount, label, entity.Gauges[combat.GaugeShield])
	return nil
}

// effectRemoveShield strips shield from the target: a fixed amount when
// given, everything otherwise.
//
// Params: amount (optional).
func effectRemoveShield(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	entity := tgt.Base()
	current := entity.Gauges[combat.GaugeShield]

	if !paramPresent(params, "amount") {
		entity.Gauges[combat.GaugeShield] = 0
		b.Logf("%s's shield removed (%d)", entity.Name, current)
		return nil
	}

	removed := paramInt(params, "amount", 0)
	if removed > current {
		removed = current
	}
	entity.Gauges[combat.GaugeShield] = current - removed
	b.Logf("%s's shield reduced by %d", entity.Name, removed)
	return nil
}
