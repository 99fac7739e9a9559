package engine

import (
	"fmt"

	"github.com/echoesrpg/echoes-server/lib/combat"
)

func init() {
	register("modify_stat", effectModifyStat)
	register("steal_stat", effectStealStat)
}

// statBuffCode builds the display code for a stat buff/debuff status. The
// code is a label only; the engine reads the structured modifier on the
// instance.
func statBuffCode(stat string, delta int) string {
	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	return fmt.Sprintf("STAT_%s_%s%d", stat, sign, abs(delta))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// effectModifyStat attaches a timed stat buff/debuff to the target as a
// status carrying a structured delta.
//
// Params: stat (AD), formula, duration_turns (2), is_debuff.
func effectModifyStat(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	stat := paramString(params, "stat", "AD")
	formulaExpr := paramString(params, "formula", "0")
	duration := paramInt(params, "duration_turns", 2)
	isDebuff := paramBool(params, "is_debuff", false)

	amount := int(b.Eval(formulaExpr, src, tgt))
	if amount == 0 {
		return nil
	}

	code := statBuffCode(stat, amount)
	tgt.Base().AddStatus(code, duration, 1, 1, &combat.StatModifier{Stat: stat, Delta: amount})

	kind := "buff"
	if isDebuff {
		kind = "debuff"
	}
	sign := "+"
	if amount < 0 {
		sign = "-"
	}
	b.Logf("%s gains %s: %s %s%d for %d turns", tgt.Base().Name, kind, stat, sign, abs(amount), duration)
	return nil
}

// effectStealStat debuffs the target and buffs the source by the same
// amount for the same duration.
//
// Params: stat (AD), amount (10), duration_turns (2).
func effectStealStat(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	stat := paramString(params, "stat", "AD")
	amount := paramInt(params, "amount", 10)
	duration := paramInt(params, "duration_turns", 2)

	tgt.Base().AddStatus(statBuffCode(stat, -amount), duration, 1, 1, &combat.StatModifier{Stat: stat, Delta: -amount})
	src.Base().AddStatus(statBuffCode(stat, amount), duration, 1, 1, &combat.StatModifier{Stat: stat, Delta: amount})

	b.Logf("%s steals %d %s from %s for %d turns", src.Base().Name, amount, stat, tgt.Base().Name, duration)
	return nil
}
