package engine

import (
	"sort"
	"strings"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/formula"
)

// Monster AI: behavior-driven ability selection. Returns nil for a basic
// attack. Selection draws only from the battle RNG, so a fixed seed replays
// the same fight.

// SelectMonsterAction picks the monster's next ability according to its
// behavior policy. Abilities on cooldown are excluded first, then abilities
// whose condition expression is falsy; a condition that fails to evaluate
// keeps its ability in the pool.
func SelectMonsterAction(b *Battle, monster *combat.MonsterEntity, target combat.Actor) *content.MonsterAbility {
	var available []*content.MonsterAbility
	for _, ability := range monster.Abilities {
		if monster.IsOnCooldown(ability.ID) {
			continue
		}
		if ability.ConditionExpr != "" && !conditionHolds(b, monster, target, ability.ConditionExpr) {
			continue
		}
		available = append(available, ability)
	}
	if len(available) == 0 {
		return nil
	}

	switch monster.Behavior {
	case content.BehaviorAggressive:
		return selectAggressive(b, available, target)
	case content.BehaviorDefensive:
		return selectDefensive(b, available, monster)
	case content.BehaviorHealer:
		return selectHealer(b, available, monster)
	case content.BehaviorBalanced:
		return selectBalanced(b, available, monster, target)
	case content.BehaviorBoss:
		return selectBoss(b, available, monster)
	default:
		return selectWeighted(b, available)
	}
}

// conditionHolds evaluates an ability gate. Evaluation errors default to
// allowed so a content typo degrades to "always available" instead of
// disabling the ability.
func conditionHolds(b *Battle, monster *combat.MonsterEntity, target combat.Actor, expr string) bool {
	value, err := formula.Eval(expr, BuildScope(monster, target))
	if err != nil {
		return true
	}
	return formula.Truthy(value)
}

// selectWeighted draws randomly with each ability weighted by priority.
func selectWeighted(b *Battle, abilities []*content.MonsterAbility) *content.MonsterAbility {
	total := 0
	for _, ability := range abilities {
		total += ability.Priority
	}
	roll := b.RNG.Float64() * float64(total)
	cumulative := 0.0
	for _, ability := range abilities {
		cumulative += float64(ability.Priority)
		if roll <= cumulative {
			return ability
		}
	}
	return abilities[0]
}

// byPriorityDesc returns a copy sorted by priority, highest first. The sort
// is stable so equal priorities keep blueprint order.
func byPriorityDesc(abilities []*content.MonsterAbility) []*content.MonsterAbility {
	sorted := make([]*content.MonsterAbility, len(abilities))
	copy(sorted, abilities)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return sorted
}

// selectAggressive favors the highest-priority ability, always when the
// target is nearly dead, 70% of the time otherwise.
func selectAggressive(b *Battle, abilities []*content.MonsterAbility, target combat.Actor) *content.MonsterAbility {
	sorted := byPriorityDesc(abilities)
	if target.Base().HPPercent() < 0.3 {
		return sorted[0]
	}
	if b.RNG.Float64() < 0.7 {
		return sorted[0]
	}
	return selectWeighted(b, abilities)
}

// isHealingAbility detects recovery abilities by opcode or name.
func isHealingAbility(ability *content.MonsterAbility, includeShield bool) bool {
	for _, effect := range ability.Effects {
		switch effect.Opcode {
		case "heal", "heal_percent_max_hp", "heal_percent_missing_hp":
			return true
		case "shield":
			if includeShield {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(ability.Name), "heal")
}

// selectDefensive reaches for a heal or shield when the monster is below
// 40% HP, weighted random otherwise.
func selectDefensive(b *Battle, abilities []*content.MonsterAbility, monster *combat.MonsterEntity) *content.MonsterAbility {
	if monster.HPPercent() < 0.4 {
		for _, ability := range abilities {
			if isHealingAbility(ability, true) {
				return ability
			}
		}
	}
	return selectWeighted(b, abilities)
}

// selectHealer prefers healing whenever the monster is not near full HP.
func selectHealer(b *Battle, abilities []*content.MonsterAbility, monster *combat.MonsterEntity) *content.MonsterAbility {
	if monster.HPPercent() < 0.8 {
		for _, ability := range abilities {
			if isHealingAbility(ability, false) {
				return ability
			}
		}
	}
	return selectWeighted(b, abilities)
}

// selectBalanced mixes defense and offense by situation.
func selectBalanced(b *Battle, abilities []*content.MonsterAbility, monster *combat.MonsterEntity, target combat.Actor) *content.MonsterAbility {
	if monster.HPPercent() < 0.3 {
		return selectDefensive(b, abilities, monster)
	}
	if target.Base().HPPercent() < 0.3 {
		return selectAggressive(b, abilities, target)
	}
	return selectWeighted(b, abilities)
}

// selectBoss phases on the boss's own HP: weighted above 70%, leaning on
// the strongest ability between 40% and 70%, and always the strongest once
// enraged below 40%.
func selectBoss(b *Battle, abilities []*content.MonsterAbility, monster *combat.MonsterEntity) *content.MonsterAbility {
	hp := monster.HPPercent()
	switch {
	case hp > 0.7:
		return selectWeighted(b, abilities)
	case hp > 0.4:
		if b.RNG.Float64() < 0.6 {
			return byPriorityDesc(abilities)[0]
		}
		return selectWeighted(b, abilities)
	default:
		return byPriorityDesc(abilities)[0]
	}
}
