package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/combat"
)

// LootDrop is one rolled item drop.
type LootDrop struct {
	ItemBlueprintID uuid.UUID `json:"item_blueprint_id"`
	Quantity        int       `json:"quantity"`
}

// LootResolver rolls drops for a defeated monster. The combat core treats
// loot tables as an external collaborator; the default resolver drops
// nothing.
type LootResolver interface {
	Resolve(ctx context.Context, monster *combat.MonsterEntity) ([]LootDrop, error)
}

// NoLoot is the default resolver.
type NoLoot struct{}

// Resolve implements LootResolver.
func (NoLoot) Resolve(context.Context, *combat.MonsterEntity) ([]LootDrop, error) {
	return nil, nil
}
