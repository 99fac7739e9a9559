// Package content holds the immutable static definitions combat runs on:
// spells, monster blueprints and abilities, item blueprints, and status
// definitions. Blueprints are loaded once from JSON catalogs at startup and
// shared read-only across all sessions, the same way character cards are
// loaded and validated before use.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/formula"
	"github.com/echoesrpg/echoes-server/lib/stats"
)

// SpellType distinguishes the three weapon spell tiers.
type SpellType string

const (
	SpellBasic    SpellType = "BASIC"
	SpellSkill    SpellType = "SKILL"
	SpellUltimate SpellType = "ULTIMATE"
)

// TickTrigger names the lifecycle event that drives a status tick.
type TickTrigger string

const (
	TickOnTurnStart TickTrigger = "ON_TURN_START"
	TickOnTurnEnd   TickTrigger = "ON_TURN_END"
	TickOnHit       TickTrigger = "ON_HIT"
	TickOnDamaged   TickTrigger = "ON_DAMAGED"
	TickImmediate   TickTrigger = "IMMEDIATE"
)

// AIBehavior names a monster action-selection policy.
type AIBehavior string

const (
	BehaviorBasic      AIBehavior = "basic"
	BehaviorAggressive AIBehavior = "aggressive"
	BehaviorDefensive  AIBehavior = "defensive"
	BehaviorHealer     AIBehavior = "healer"
	BehaviorBalanced   AIBehavior = "balanced"
	BehaviorBoss       AIBehavior = "boss"
)

// EffectPayload is one opcode invocation stored in a spell, ability or
// status tick. Params stays a generic bag: each opcode documents the keys
// it reads.
type EffectPayload struct {
	Opcode string         `json:"opcode"`
	Params map[string]any `json:"params,omitempty"`
	Order  int            `json:"order,omitempty"`
}

// Spell is an ability granted by an equipped weapon.
type Spell struct {
	ID                uuid.UUID       `json:"id"`
	WeaponBlueprintID uuid.UUID       `json:"weapon_blueprint_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Type              SpellType       `json:"spell_type"`
	SpellOrder        int             `json:"spell_order,omitempty"`
	CooldownTurns     int             `json:"cooldown_turns,omitempty"`
	EchoCost          int             `json:"echo_cost,omitempty"`
	Effects           []EffectPayload `json:"effects"`
}

// IsUltimate reports whether the spell is an ultimate. Ultimates earn no
// Echo when cast; the Echo spent on a cast is EchoCost, whatever the type.
func (s *Spell) IsUltimate() bool { return s.Type == SpellUltimate }

// MonsterAbility is a spell-shaped action with AI selection metadata.
type MonsterAbility struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	CooldownTurns int             `json:"cooldown_turns,omitempty"`
	Priority      int             `json:"priority"`
	ConditionExpr string          `json:"condition_expr,omitempty"`
	Effects       []EffectPayload `json:"effects"`
}

// MonsterBlueprint is the static definition a monster instance is derived
// from.
type MonsterBlueprint struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	BaseLevel     int               `json:"base_level"`
	Behavior      AIBehavior        `json:"ai_behavior"`
	IsBoss        bool              `json:"is_boss,omitempty"`
	LootTableID   *uuid.UUID        `json:"loot_table_id,omitempty"`
	XPReward      int               `json:"xp_reward"`
	GoldRewardMin int               `json:"gold_reward_min"`
	GoldRewardMax int               `json:"gold_reward_max"`
	BaseStats     stats.Block       `json:"base_stats"`
	Scaling       stats.Scaling     `json:"scaling"`
	Abilities     []*MonsterAbility `json:"abilities,omitempty"`
}

// StatsAtLevel computes the blueprint's stats at a given monster level,
// scaling from the base level.
func (bp *MonsterBlueprint) StatsAtLevel(level int) stats.Block {
	return bp.BaseStats.Scale(level-bp.BaseLevel, bp.Scaling)
}

// ItemBlueprint is a piece of equippable gear. Weapons carry spells;
// consumables carry a one-shot effect list.
type ItemBlueprint struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Slot              string          `json:"slot"`
	BaseStats         stats.Block     `json:"base_stats"`
	Scaling           stats.Scaling   `json:"scaling"`
	Spells            []*Spell        `json:"spells,omitempty"`
	ConsumableEffects []EffectPayload `json:"consumable_effects,omitempty"`
}

// StatsAtLevel computes an item's contribution at its upgrade level.
func (bp *ItemBlueprint) StatsAtLevel(level int) stats.Block {
	return bp.BaseStats.Scale(level, bp.Scaling)
}

// StatusDefinition describes a status code's behavior. Loaded from the JSON
// catalog; every store serves these from the catalog.
type StatusDefinition struct {
	Code        string         `json:"code"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description,omitempty"`
	IsDebuff    bool           `json:"is_debuff,omitempty"`
	IsStackable bool           `json:"is_stackable,omitempty"`
	MaxStacks   int            `json:"max_stacks,omitempty"`
	TickTrigger TickTrigger    `json:"tick_trigger,omitempty"`
	TickEffect  *EffectPayload `json:"tick_effect,omitempty"`
}

// validateEffects parse-checks every formula-bearing param in an effect
// list so bad content fails at load time, not mid-combat.
func validateEffects(owner string, effects []EffectPayload) error {
	for i, effect := range effects {
		if effect.Opcode == "" {
			return fmt.Errorf("%s: effect %d missing opcode", owner, i)
		}
		for _, key := range []string{"formula", "chance", "condition"} {
			raw, ok := effect.Params[key]
			if !ok {
				continue
			}
			expr, ok := raw.(string)
			if !ok {
				continue
			}
			if _, err := formula.Parse(expr); err != nil {
				return fmt.Errorf("%s: effect %d (%s): %w", owner, i, effect.Opcode, err)
			}
		}
		for _, key := range []string{"then_effects", "else_effects"} {
			raw, ok := effect.Params[key]
			if !ok {
				continue
			}
			nested, err := DecodeEffects(raw)
			if err != nil {
				return fmt.Errorf("%s: effect %d (%s) %s: %w", owner, i, effect.Opcode, key, err)
			}
			if err := validateEffects(owner, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeEffects converts a raw JSON value (as found inside a params bag)
// into an effect list.
func DecodeEffects(raw any) ([]EffectPayload, error) {
	if raw == nil {
		return nil, nil
	}
	if effects, ok := raw.([]EffectPayload); ok {
		return effects, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode nested effects: %w", err)
	}
	var effects []EffectPayload
	if err := json.Unmarshal(data, &effects); err != nil {
		return nil, fmt.Errorf("decode nested effects: %w", err)
	}
	return effects, nil
}
