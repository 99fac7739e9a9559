package engine

import (
	"github.com/echoesrpg/echoes-server/lib/combat"
)

func init() {
	register("damage", effectDamage)
	register("damage_percent_max_hp", effectDamagePercentMaxHP)
	register("damage_percent_missing_hp", effectDamagePercentMissingHP)
}

// effectDamage inflicts formula-based damage.
//
// Params: formula, damage_type (PHYSICAL), variance [0,0.2], can_crit, label.
func effectDamage(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	formulaExpr := paramString(params, "formula", "0")
	damageType := combat.ParseDamageType(paramString(params, "damage_type", ""), combat.DamagePhysical)
	variance := paramFloat(params, "variance", 0)
	canCrit := paramBool(params, "can_crit", false)
	label := paramString(params, "label", "damage")

	base := b.Eval(formulaExpr, src, tgt)

	if variance > 0 {
		roll := 1.0 + (b.RNG.Float64()*2-1)*variance
		base *= roll
	}

	isCrit := false
	srcStats := src.Base().EffectiveStats()
	if canCrit && b.RNG.Float64() < srcStats.CritChance {
		base *= srcStats.CritDamage
		isCrit = true
	}

	result := tgt.Base().TakeDamage(int(base), damageType)
	result.WasCritical = isCrit

	critText := ""
	if isCrit {
		critText = " (CRIT!)"
	}
	entry := b.Logf("%s deals %d %s%s to %s. HP: %d/%d",
		src.Base().Name, result.Final, label, critText,
		tgt.Base().Name, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	entry.Damage = result.Final
	entry.DamageType = &result.Type
	entry.WasCrit = isCrit

	b.LastDamage = result
	return nil
}

// effectDamagePercentMaxHP deals a fraction of the target's max HP.
//
// Params: percent, damage_type (TRUE), label.
func effectDamagePercentMaxHP(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	percent := paramFloat(params, "percent", 0.05)
	damageType := combat.ParseDamageType(paramString(params, "damage_type", ""), combat.DamageTrue)
	label := paramString(params, "label", "% max HP damage")

	amount := int(float64(tgt.Base().MaxHP) * percent)
	result := tgt.Base().TakeDamage(amount, damageType)
	b.Logf("%s deals %d %s to %s. HP: %d/%d",
		src.Base().Name, result.Final, label,
		tgt.Base().Name, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	b.LastDamage = result
	return nil
}

// effectDamagePercentMissingHP deals a fraction of the target's missing HP.
//
// Params: percent, damage_type (PHYSICAL), label.
func effectDamagePercentMissingHP(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	percent := paramFloat(params, "percent", 0.1)
	damageType := combat.ParseDamageType(paramString(params, "damage_type", ""), combat.DamagePhysical)
	label := paramString(params, "label", "execute damage")

	missing := tgt.Base().MaxHP - tgt.Base().CurrentHP
	amount := int(float64(missing) * percent)
	result := tgt.Base().TakeDamage(amount, damageType)
	b.Logf("%s deals %d %s to %s. HP: %d/%d",
		src.Base().Name, result.Final, label,
		tgt.Base().Name, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	b.LastDamage = result
	return nil
}
