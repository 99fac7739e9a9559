package combat

import (
	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/content"
)

// MonsterEntity is the monster side of a combat, instantiated from a
// blueprint at a specific level.
type MonsterEntity struct {
	Entity

	BlueprintID   uuid.UUID
	Level         int
	Behavior      content.AIBehavior
	Abilities     []*content.MonsterAbility
	IsBoss        bool
	LootTableID   *uuid.UUID
	XPReward      int
	GoldRewardMin int
	GoldRewardMax int
}

// NewMonsterEntity instantiates a monster from its blueprint at the given
// level.
func NewMonsterEntity(bp *content.MonsterBlueprint, level int) *MonsterEntity {
	block := bp.StatsAtLevel(level)
	return &MonsterEntity{
		Entity:        *NewEntity(bp.ID, bp.Name, block),
		BlueprintID:   bp.ID,
		Level:         level,
		Behavior:      bp.Behavior,
		Abilities:     bp.Abilities,
		IsBoss:        bp.IsBoss,
		LootTableID:   bp.LootTableID,
		XPReward:      bp.XPReward,
		GoldRewardMin: bp.GoldRewardMin,
		GoldRewardMax: bp.GoldRewardMax,
	}
}

// MonsterFromSnapshot rebuilds a monster entity from persisted session state.
func MonsterFromSnapshot(bp *content.MonsterBlueprint, level, currentHP, maxHP int) *MonsterEntity {
	m := NewMonsterEntity(bp, level)
	m.CurrentHP = currentHP
	m.MaxHP = maxHP
	return m
}

var (
	_ Actor = (*MonsterEntity)(nil)
	_ Actor = (*PlayerEntity)(nil)
)
