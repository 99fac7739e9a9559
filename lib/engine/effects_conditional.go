package engine

import (
	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

func init() {
	register("bonus_damage_if_target_has_status", effectBonusDamageIfStatus)
	register("bonus_damage_per_stack", effectBonusDamagePerStack)
	register("execute_if_low_hp", effectExecuteIfLowHP)
	register("if_condition", effectIfCondition)
}

// effectBonusDamageIfStatus deals extra damage when the target carries a
// named status, optionally consuming it.
//
// Params: status_code, formula, damage_type (PHYSICAL), consume_status.
func effectBonusDamageIfStatus(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	code := paramString(params, "status_code", "")
	formulaExpr := paramString(params, "formula", "0")
	damageType := combat.ParseDamageType(paramString(params, "damage_type", ""), combat.DamagePhysical)
	consume := paramBool(params, "consume_status", false)

	if !tgt.Base().HasStatus(code) {
		return nil
	}

	bonus := int(b.Eval(formulaExpr, src, tgt))
	if bonus <= 0 {
		return nil
	}

	result := tgt.Base().TakeDamage(bonus, damageType)
	b.Logf("%s deals %d bonus damage (%s). HP: %d/%d",
		src.Base().Name, result.Final, code, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	b.LastDamage = result

	if consume {
		tgt.Base().RemoveStatus(code)
		b.Logf("%s consumed", code)
	}
	return nil
}

// effectBonusDamagePerStack scales flat damage by a status's stack count,
// optionally clearing the stacks afterwards.
//
// Params: status_code, damage_per_stack (10), damage_type (MAGIC),
// consume_stacks.
func effectBonusDamagePerStack(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	code := paramString(params, "status_code", "")
	perStack := paramInt(params, "damage_per_stack", 10)
	damageType := combat.ParseDamageType(paramString(params, "damage_type", ""), combat.DamageMagic)
	consume := paramBool(params, "consume_stacks", false)

	stacks := tgt.Base().StatusStacks(code)
	if stacks <= 0 {
		return nil
	}

	result := tgt.Base().TakeDamage(perStack*stacks, damageType)
	b.Logf("%s deals %d damage (%d %s stacks). HP: %d/%d",
		src.Base().Name, result.Final, stacks, code, tgt.Base().CurrentHP, tgt.Base().MaxHP)
	b.LastDamage = result

	if consume {
		tgt.Base().RemoveStatus(code)
	}
	return nil
}

// effectExecuteIfLowHP kills the target outright below an HP threshold.
// Bosses are immune unless ignore_bosses is explicitly disabled.
//
// Params: threshold_percent (0.15), ignore_bosses (true).
func effectExecuteIfLowHP(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	threshold := paramFloat(params, "threshold_percent", 0.15)
	ignoreBosses := paramBool(params, "ignore_bosses", true)

	if monster, ok := tgt.(*combat.MonsterEntity); ok && monster.IsBoss && ignoreBosses {
		return nil
	}

	if tgt.Base().HPPercent() <= threshold {
		tgt.Base().CurrentHP = 0
		b.Logf("%s executes %s!", src.Base().Name, tgt.Base().Name)
	}
	return nil
}

// effectIfCondition evaluates a predicate and runs exactly one branch
// through the normal dispatch path.
//
// Params: condition (formula, "1"), then_effects, else_effects.
func effectIfCondition(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	condition := paramString(params, "condition", "1")

	branch := "then_effects"
	if !b.EvalTruthy(condition, src, tgt) {
		branch = "else_effects"
	}

	effects, err := content.DecodeEffects(params[branch])
	if err != nil {
		b.Logf("[WARN] if_condition: bad %s", branch)
		return nil
	}
	if len(effects) == 0 {
		return nil
	}
	return b.RunEffects(src, tgt, effects)
}
