// Package combat defines the runtime entities that participate in a combat
// session: the player, the monster, their active statuses and gauges, and
// the damage/mitigation model applied to them. Entities are rebuilt from the
// persisted session on every action and synced back before returning, so no
// entity object outlives a single request.
package combat

import (
	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/stats"
)

// GaugeShield is the reserved gauge name used for damage absorption.
const GaugeShield = "shield"

// StatModifier is a structured stat delta carried by a buff/debuff status.
// The status code (e.g. "STAT_AD_+10") is only a label; the engine reads
// this record, never the string.
type StatModifier struct {
	Stat  string `json:"stat"`
	Delta int    `json:"delta"`
}

// StatusInstance is an active status on an entity. Mutable because duration
// decreases over time. Remaining is always >= 1 while the instance exists;
// the status engine removes instances that tick to zero.
type StatusInstance struct {
	Remaining int           `json:"remaining"`
	Stacks    int           `json:"stacks"`
	Modifier  *StatModifier `json:"modifier,omitempty"`
}

// AddStacks adds stacks, respecting an optional maximum (0 means uncapped).
func (s *StatusInstance) AddStacks(amount, maxStacks int) {
	s.Stacks += amount
	if maxStacks > 0 && s.Stacks > maxStacks {
		s.Stacks = maxStacks
	}
}

// Actor is the common view of any combat participant. Handlers accept Actors
// so the same opcode can target either side; player-only behavior (Echo) is
// reached by type assertion on *PlayerEntity.
type Actor interface {
	Base() *Entity
}

// Entity holds the mutable runtime combat state shared by players and
// monsters. Statuses keep insertion order so end-of-turn ticks are
// deterministic across persist/reload cycles.
type Entity struct {
	ID        uuid.UUID
	Name      string
	Stats     stats.Block // current, post-equipment
	CurrentHP int
	MaxHP     int

	statuses    map[string]*StatusInstance
	statusOrder []string

	Gauges    map[string]int
	Cooldowns map[uuid.UUID]int
}

// NewEntity creates an entity at full HP with empty status/gauge state.
func NewEntity(id uuid.UUID, name string, block stats.Block) *Entity {
	return &Entity{
		ID:        id,
		Name:      name,
		Stats:     block,
		CurrentHP: block.MaxHP,
		MaxHP:     block.MaxHP,
		statuses:  make(map[string]*StatusInstance),
		Gauges:    make(map[string]int),
		Cooldowns: make(map[uuid.UUID]int),
	}
}

// Base implements Actor.
func (e *Entity) Base() *Entity { return e }

// IsDead reports whether the entity has no HP left.
func (e *Entity) IsDead() bool { return e.CurrentHP <= 0 }

// HPPercent returns current HP as a fraction of max HP, 0 if max is 0.
func (e *Entity) HPPercent() float64 {
	if e.MaxHP <= 0 {
		return 0
	}
	return float64(e.CurrentHP) / float64(e.MaxHP)
}

// Shield returns the current shield gauge value.
func (e *Entity) Shield() int { return e.Gauges[GaugeShield] }

// EffectiveStats folds active stat-modifier statuses over the entity's
// post-equipment stats. Deltas apply per stack.
func (e *Entity) EffectiveStats() stats.Block {
	block := e.Stats
	for _, code := range e.statusOrder {
		inst := e.statuses[code]
		if inst == nil || inst.Modifier == nil {
			continue
		}
		delta := inst.Modifier.Delta * inst.Stacks
		switch inst.Modifier.Stat {
		case "AD":
			block.AD += delta
		case "AP":
			block.AP += delta
		case "ARMOR":
			block.Armor += delta
		case "MR":
			block.MR += delta
		case "SPEED":
			block.Speed += delta
		case "MAX_HP":
			block.MaxHP += delta
		}
	}
	return block
}

// Heal restores HP, clamped to max. Returns the amount actually restored.
func (e *Entity) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	actual := e.MaxHP - e.CurrentHP
	if amount < actual {
		actual = amount
	}
	e.CurrentHP += actual
	return actual
}

// HasStatus reports whether the named status is active.
func (e *Entity) HasStatus(code string) bool {
	_, ok := e.statuses[code]
	return ok
}

// Status returns the active instance for code, or nil.
func (e *Entity) Status(code string) *StatusInstance {
	return e.statuses[code]
}

// StatusStacks returns the stack count for code, 0 when absent.
func (e *Entity) StatusStacks(code string) int {
	if inst, ok := e.statuses[code]; ok {
		return inst.Stacks
	}
	return 0
}

// StatusCodes returns active status codes in insertion order.
func (e *Entity) StatusCodes() []string {
	codes := make([]string, len(e.statusOrder))
	copy(codes, e.statusOrder)
	return codes
}

// StatusCount returns the number of active statuses.
func (e *Entity) StatusCount() int { return len(e.statusOrder) }

// AddStatus applies or refreshes a status. Refreshing keeps the larger of
// the old remaining duration and the new one and accumulates stacks up to
// maxStacks (0 = uncapped). Returns the resulting instance.
func (e *Entity) AddStatus(code string, duration, addStacks, maxStacks int, mod *StatModifier) *StatusInstance {
	if addStacks < 1 {
		addStacks = 1
	}
	if existing, ok := e.statuses[code]; ok {
		if duration > existing.Remaining {
			existing.Remaining = duration
		}
		existing.AddStacks(addStacks, maxStacks)
		return existing
	}
	stacks := addStacks
	if maxStacks > 0 && stacks > maxStacks {
		stacks = maxStacks
	}
	inst := &StatusInstance{Remaining: duration, Stacks: stacks, Modifier: mod}
	e.statuses[code] = inst
	e.statusOrder = append(e.statusOrder, code)
	return inst
}

// RestoreStatus reinstates a persisted status instance verbatim, preserving
// load order. Used when rebuilding entities from a session snapshot.
func (e *Entity) RestoreStatus(code string, inst StatusInstance) {
	copyInst := inst
	e.statuses[code] = &copyInst
	e.statusOrder = append(e.statusOrder, code)
}

// RemoveStatus deletes a status. Returns true if it existed.
func (e *Entity) RemoveStatus(code string) bool {
	if _, ok := e.statuses[code]; !ok {
		return false
	}
	delete(e.statuses, code)
	for i, c := range e.statusOrder {
		if c == code {
			e.statusOrder = append(e.statusOrder[:i], e.statusOrder[i+1:]...)
			break
		}
	}
	return true
}

// SetCooldown puts an ability on cooldown for the given number of turns.
func (e *Entity) SetCooldown(abilityID uuid.UUID, turns int) {
	if turns > 0 {
		e.Cooldowns[abilityID] = turns
	}
}

// IsOnCooldown reports whether the ability is still cooling down.
func (e *Entity) IsOnCooldown(abilityID uuid.UUID) bool {
	_, ok := e.Cooldowns[abilityID]
	return ok
}

// TickCooldowns decrements every cooldown by one turn, dropping entries
// that reach zero.
func (e *Entity) TickCooldowns() {
	for id := range e.Cooldowns {
		e.Cooldowns[id]--
		if e.Cooldowns[id] <= 0 {
			delete(e.Cooldowns, id)
		}
	}
}
