package engine

import (
	"github.com/echoesrpg/echoes-server/lib/combat"
)

func init() {
	register("heal", effectHeal)
	register("heal_percent_max_hp", effectHealPercentMaxHP)
	register("heal_percent_missing_hp", effectHealPercentMissingHP)
	register("lifesteal", effectLifesteal)
}

// effectHeal restores formula-based HP to the target, clamped at max.
//
// Params: formula, label.
func effectHeal(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	formulaExpr := paramString(params, "formula", "0")
	label := paramString(params, "label", "heal")

	amount := int(b.Eval(formulaExpr, src, tgt))
	healed := tgt.Base().Heal(amount)
	b.Logf("%s heals %d (%s). HP: %d/%d",
		tgt.Base().Name, healed, label, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	return nil
}

// effectHealPercentMaxHP heals a fraction of the target's max HP.
//
// Params: percent, label.
func effectHealPercentMaxHP(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	percent := paramFloat(params, "percent", 0.1)
	label := paramString(params, "label", "% max HP heal")

	amount := int(float64(tgt.Base().MaxHP) * percent)
	healed := tgt.Base().Heal(amount)
	b.Logf("%s heals %d (%s). HP: %d/%d",
		tgt.Base().Name, healed, label, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	return nil
}

// effectHealPercentMissingHP heals a fraction of the target's missing HP.
//
// Params: percent, label.
func effectHealPercentMissingHP(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	percent := paramFloat(params, "percent", 0.2)
	label := paramString(params, "label", "recovery")

	missing := tgt.Base().MaxHP - tgt.Base().CurrentHP
	amount := int(float64(missing) * percent)
	healed := tgt.Base().Heal(amount)
	b.Logf("%s heals %d (%s). HP: %d/%d",
		tgt.Base().Name, healed, label, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	return nil
}

// effectLifesteal heals the source for a fraction of the last damage dealt
// in this action. A no-op when nothing has hit yet.
//
// Params: percent, label.
func effectLifesteal(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	percent := paramFloat(params, "percent", 0.2)
	label := paramString(params, "label", "lifesteal")

	if b.LastDamage == nil {
		return nil
	}
	amount := int(float64(b.LastDamage.Final) * percent)
	healed := src.Base().Heal(amount)
	b.Logf("%s heals %d (%s). HP: %d/%d",
		src.Base().Name, healed, label, src.Base().CurrentHP, src.Base().MaxHP)
	return nil
}
