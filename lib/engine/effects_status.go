package engine

import (
	"strings"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

func init() {
	register("apply_status", effectApplyStatus)
	register("remove_status", effectRemoveStatus)
	register("extend_status", effectExtendStatus)
	register("transfer_status", effectTransferStatus)
}

// effectApplyStatus applies or refreshes a status on the target. Refreshing
// keeps the larger remaining duration and accumulates stacks up to the cap.
// A status whose definition ticks IMMEDIATE runs its tick once on apply.
//
// Params: status_code, duration_turns, stacks (1), chance (formula, "1"),
// max_stacks (falls back to the definition's cap).
func effectApplyStatus(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	code := paramString(params, "status_code", "")
	if code == "" {
		b.Logf("[WARN] apply_status missing status_code")
		return nil
	}

	duration := paramInt(params, "duration_turns", 1)
	stacks := paramInt(params, "stacks", 1)
	chanceExpr := paramString(params, "chance", "1")

	chance := b.Eval(chanceExpr, src, tgt)
	if chance < 0 {
		chance = 0
	}
	if chance > 1 {
		chance = 1
	}
	if b.RNG.Float64() > chance {
		b.Logf("%s resisted %s", tgt.Base().Name, code)
		return nil
	}

	def := b.StatusDefinition(code)
	maxStacks := 0
	if paramPresent(params, "max_stacks") {
		maxStacks = paramInt(params, "max_stacks", 0)
	} else if def != nil && def.IsStackable {
		maxStacks = def.MaxStacks
	} else if def != nil {
		maxStacks = 1
	}

	tgt.Base().AddStatus(code, duration, stacks, maxStacks, nil)
	b.Logf("%s gains %s (%d turns, %d stacks)", tgt.Base().Name, code, duration, stacks)

	if def != nil && def.TickTrigger == content.TickImmediate && def.TickEffect != nil {
		return b.RunEffects(tgt, tgt, []content.EffectPayload{*def.TickEffect})
	}
	return nil
}

// effectRemoveStatus removes one named status, or sweeps all debuffs/buffs
// according to the status definition table. Removing an absent status is a
// logged no-op.
//
// Params: status_code | all_debuffs | all_buffs.
func effectRemoveStatus(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	target := tgt.Base()

	if paramBool(params, "all_debuffs", false) {
		removed := sweepStatuses(b, target, true)
		if len(removed) > 0 {
			b.Logf("%s cleansed: %s", target.Name, strings.Join(removed, ", "))
		}
		return nil
	}
	if paramBool(params, "all_buffs", false) {
		removed := sweepStatuses(b, target, false)
		if len(removed) > 0 {
			b.Logf("%s lost buffs: %s", target.Name, strings.Join(removed, ", "))
		}
		return nil
	}

	code := paramString(params, "status_code", "")
	if code == "" {
		return nil
	}
	if target.RemoveStatus(code) {
		b.Logf("%s lost %s", target.Name, code)
	} else {
		b.Logf("%s doesn't have %s", target.Name, code)
	}
	return nil
}

// sweepStatuses removes every status whose definition marks it as a debuff
// (or buff). Statuses without a definition are left alone.
func sweepStatuses(b *Battle, target *combat.Entity, debuffs bool) []string {
	var removed []string
	for _, code := range target.StatusCodes() {
		def := b.StatusDefinition(code)
		if def == nil || def.IsDebuff != debuffs {
			continue
		}
		target.RemoveStatus(code)
		removed = append(removed, code)
	}
	return removed
}

// effectExtendStatus adds turns to an active status's remaining duration.
//
// Params: status_code, duration_turns.
func effectExtendStatus(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	code := paramString(params, "status_code", "")
	duration := paramInt(params, "duration_turns", 1)

	if inst := tgt.Base().Status(code); inst != nil {
		inst.Remaining += duration
		b.Logf("%s's %s extended by %d turns", tgt.Base().Name, code, duration)
	}
	return nil
}

// effectTransferStatus moves a status (duration and stacks) from source to
// target.
//
// Params: status_code.
func effectTransferStatus(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	code := paramString(params, "status_code", "")
	inst := src.Base().Status(code)
	if inst == nil {
		return nil
	}
	tgt.Base().AddStatus(code, inst.Remaining, inst.Stacks, 0, inst.Modifier)
	src.Base().RemoveStatus(code)
	b.Logf("%s transferred from %s to %s", code, src.Base().Name, tgt.Base().Name)
	return nil
}
