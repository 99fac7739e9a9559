package service

import (
	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/engine"
)

// Wire DTOs returned by the combat service. Field names follow the public
// API contract, so tags are snake_case.

// EntityState is the monster-side view in a state payload.
type EntityState struct {
	Name      string         `json:"name"`
	CurrentHP int            `json:"current_hp"`
	MaxHP     int            `json:"max_hp"`
	Statuses  map[string]int `json:"statuses"`
}

// PlayerState is the player-side view, including Echo, cooldowns and
// consumable charges.
type PlayerState struct {
	Name           string         `json:"name"`
	CurrentHP      int            `json:"current_hp"`
	MaxHP          int            `json:"max_hp"`
	EchoCurrent    int            `json:"echo_current"`
	EchoMax        int            `json:"echo_max"`
	Statuses       map[string]int `json:"statuses"`
	Shield         int            `json:"shield"`
	SpellCooldowns map[string]int `json:"spell_cooldowns"`
	ConsumableUses int            `json:"consumable_uses"`
}

// CombatState is the full state payload returned after every operation.
type CombatState struct {
	SessionID        uuid.UUID     `json:"session_id"`
	Status           combat.Status `json:"status"`
	TurnCount        int           `json:"turn_count"`
	CurrentTurn      string        `json:"current_turn"`
	Player           PlayerState   `json:"player"`
	Monster          EntityState   `json:"monster"`
	AvailableActions []string      `json:"available_actions"`
	Logs             []string      `json:"logs"`
}

// Reward reports what a victory paid out.
type Reward struct {
	XPGained     int        `json:"xp_gained"`
	GoldGained   int        `json:"gold_gained"`
	LevelsGained int        `json:"levels_gained"`
	LootDrops    []LootDrop `json:"loot_drops,omitempty"`
}

// CombatResult wraps an operation outcome with the refreshed state.
type CombatResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	State       *CombatState `json:"state,omitempty"`
	CombatEnded bool         `json:"combat_ended"`
	Result      string       `json:"result,omitempty"`
	Rewards     *Reward      `json:"rewards,omitempty"`
}

// ActionInput describes one player action request.
type ActionInput struct {
	ActionType string     `json:"action_type"`
	SpellID    *uuid.UUID `json:"spell_id,omitempty"`
}

// Action type strings accepted by ExecuteAction.
const (
	ActionBasicAttack = "basic_attack"
	ActionSpell       = "spell"
	ActionConsumable  = "consumable"
)

// logTail is how many combat log lines state payloads echo back.
const logTail = 10

func statusStacks(e *combat.Entity) map[string]int {
	out := make(map[string]int, e.StatusCount())
	for _, code := range e.StatusCodes() {
		out[code] = e.StatusStacks(code)
	}
	return out
}

// stateFromBattle converts the runtime battle into a state DTO.
func stateFromBattle(b *engine.Battle) *CombatState {
	cooldowns := make(map[string]int, len(b.Player.Cooldowns))
	for id, turns := range b.Player.Cooldowns {
		cooldowns[id.String()] = turns
	}

	return &CombatState{
		SessionID:   b.Session.ID,
		Status:      b.Session.Status,
		TurnCount:   b.Session.TurnCount,
		CurrentTurn: b.Session.CurrentTurnEntity,
		Player: PlayerState{
			Name:           b.Player.Name,
			CurrentHP:      b.Player.CurrentHP,
			MaxHP:          b.Player.MaxHP,
			EchoCurrent:    b.Player.EchoCurrent,
			EchoMax:        b.Player.EchoMax,
			Statuses:       statusStacks(&b.Player.Entity),
			Shield:         b.Player.Shield(),
			SpellCooldowns: cooldowns,
			ConsumableUses: b.Player.ConsumableUses,
		},
		Monster: EntityState{
			Name:      b.Monster.Name,
			CurrentHP: b.Monster.CurrentHP,
			MaxHP:     b.Monster.MaxHP,
			Statuses:  statusStacks(&b.Monster.Entity),
		},
		AvailableActions: availableActions(b),
		Logs:             combat.TailMessages(b.Logs, logTail),
	}
}

// availableActions lists what the player could legally do right now.
func availableActions(b *engine.Battle) []string {
	if b.Session.Status != combat.StatusPlayerTurn {
		return nil
	}
	actions := []string{ActionBasicAttack}
	for _, spell := range b.Player.AvailableSpells {
		if b.Player.IsOnCooldown(spell.ID) {
			continue
		}
		if spell.EchoCost > 0 && b.Player.EchoCurrent < spell.EchoCost {
			continue
		}
		actions = append(actions, ActionSpell+":"+spell.ID.String())
	}
	if b.Player.ConsumableUses > 0 {
		actions = append(actions, ActionConsumable)
	}
	actions = append(actions, "flee")
	return actions
}
