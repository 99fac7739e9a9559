package engine

import (
	"fmt"
	"strings"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// Status engine: lifecycle ticks and duration bookkeeping for active
// statuses. The engine is the only code that mutates durations and removes
// expired instances after the initial apply.

// ProcessTurnStart runs ON_TURN_START tick effects for the entity beginning
// its turn.
func (b *Battle) ProcessTurnStart(actor combat.Actor) {
	b.processTicks(actor, content.TickOnTurnStart)
}

// ProcessTurnEnd runs ON_TURN_END tick effects, then decrements status
// durations (removing expired instances) and ability cooldowns.
func (b *Battle) ProcessTurnEnd(actor combat.Actor) {
	b.processTicks(actor, content.TickOnTurnEnd)
	b.decrementStatusDurations(actor.Base())
	actor.Base().TickCooldowns()
}

// processTicks executes the tick effect of every active status matching the
// trigger, in insertion order. Stackable statuses tick once per stack, with
// the owning entity as both source and target.
func (b *Battle) processTicks(actor combat.Actor, trigger content.TickTrigger) {
	entity := actor.Base()
	for _, code := range entity.StatusCodes() {
		if !entity.HasStatus(code) {
			// Removed by an earlier tick in this same pass.
			continue
		}
		def := b.StatusDefinition(code)
		if def == nil || def.TickTrigger != trigger || def.TickEffect == nil {
			continue
		}

		ticks := 1
		if def.IsStackable {
			ticks = entity.StatusStacks(code)
		}
		for i := 0; i < ticks; i++ {
			if err := b.RunEffects(actor, actor, []content.EffectPayload{*def.TickEffect}); err != nil {
				b.Logf("[ERROR] Status %s tick failed: %v", code, err)
				break
			}
		}
	}
}

// decrementStatusDurations ages every status one turn and removes the ones
// that expire, logging each expiry.
func (b *Battle) decrementStatusDurations(entity *combat.Entity) {
	var expired []string
	for _, code := range entity.StatusCodes() {
		inst := entity.Status(code)
		inst.Remaining--
		if inst.Remaining <= 0 {
			expired = append(expired, code)
		}
	}
	for _, code := range expired {
		entity.RemoveStatus(code)
		b.Logf("%s's %s expired", entity.Name, code)
	}
}

// ProcessOnHit runs the attacker's ON_HIT status ticks against the target.
func (b *Battle) ProcessOnHit(attacker, target combat.Actor) {
	entity := attacker.Base()
	for _, code := range entity.StatusCodes() {
		def := b.StatusDefinition(code)
		if def == nil || def.TickTrigger != content.TickOnHit || def.TickEffect == nil {
			continue
		}
		if err := b.RunEffects(attacker, target, []content.EffectPayload{*def.TickEffect}); err != nil {
			b.Logf("[ERROR] Status %s on-hit failed: %v", code, err)
		}
	}
}

// ProcessOnDamaged runs the defender's ON_DAMAGED status ticks against the
// attacker.
func (b *Battle) ProcessOnDamaged(defender, attacker combat.Actor) {
	entity := defender.Base()
	for _, code := range entity.StatusCodes() {
		def := b.StatusDefinition(code)
		if def == nil || def.TickTrigger != content.TickOnDamaged || def.TickEffect == nil {
			continue
		}
		if err := b.RunEffects(defender, attacker, []content.EffectPayload{*def.TickEffect}); err != nil {
			b.Logf("[ERROR] Status %s on-damaged failed: %v", code, err)
		}
	}
}

// StatusSummary renders the entity's statuses for state payload logs, e.g.
// "BURN x3 (2t), CHILL (1t)".
func StatusSummary(entity *combat.Entity) string {
	codes := entity.StatusCodes()
	if len(codes) == 0 {
		return "No active statuses"
	}
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		inst := entity.Status(code)
		if inst.Stacks > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d (%dt)", code, inst.Stacks, inst.Remaining))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%dt)", code, inst.Remaining))
		}
	}
	return strings.Join(parts, ", ")
}
