// Package store is the persistence boundary of the combat core. The engine
// and service layers only see the Store interface; implementations exist
// for Postgres, a JSON file (single-node deployments and tools), and
// memory (tests). Static content (blueprints, status definitions) is served
// from the loaded catalog; the database is authoritative only for player
// rows, sessions and logs.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a session write-back loses an
	// optimistic concurrency race.
	ErrVersionConflict = errors.New("session version conflict")
)

// PlayerRecord is the slice of the player row the combat core reads.
type PlayerRecord struct {
	ID             uuid.UUID `db:"id"`
	Username       string    `db:"username"`
	Level          int       `db:"level"`
	XP             int64     `db:"xp"`
	Gold           int64     `db:"gold"`
	EchoMax        int       `db:"echo_max"`
	ConsumableUses int       `db:"consumable_uses"`
}

// EquippedItem pairs an equipped item's blueprint with its upgrade level.
type EquippedItem struct {
	Blueprint *content.ItemBlueprint
	ItemLevel int
}

// Store is the session store the orchestrator consumes. Each public
// orchestrator call maps onto one logical transaction against it.
type Store interface {
	LoadSession(ctx context.Context, id uuid.UUID) (*combat.Session, error)
	ActiveSessionForPlayer(ctx context.Context, playerID uuid.UUID) (*combat.Session, error)
	CreateSession(ctx context.Context, session *combat.Session) error
	// PersistSession writes the session back iff the stored version still
	// matches session.Version, then increments it. ErrVersionConflict on a
	// lost race.
	PersistSession(ctx context.Context, session *combat.Session) error
	AppendLogs(ctx context.Context, entries []*combat.LogEntry) error

	AllStatusDefinitions(ctx context.Context) ([]*content.StatusDefinition, error)
	MonsterBlueprint(ctx context.Context, id uuid.UUID) (*content.MonsterBlueprint, error)

	Player(ctx context.Context, id uuid.UUID) (*PlayerRecord, error)
	EquippedItems(ctx context.Context, playerID uuid.UUID) ([]*EquippedItem, error)
	// AddXP grants experience and applies level-ups. Returns the new level
	// and how many levels were gained.
	AddXP(ctx context.Context, playerID uuid.UUID, xp int) (level, levelsGained int, err error)
	AddGold(ctx context.Context, playerID uuid.UUID, gold int) error
}

// xpThreshold is the experience required to advance from the given level.
func xpThreshold(level int) int64 {
	return int64(level) * 100
}

// applyXP folds xp into a player record, advancing levels while thresholds
// are crossed. Shared by every store implementation.
func applyXP(p *PlayerRecord, xp int) (levelsGained int) {
	p.XP += int64(xp)
	for p.XP >= xpThreshold(p.Level) {
		p.XP -= xpThreshold(p.Level)
		p.Level++
		levelsGained++
	}
	return levelsGained
}

// cloneSession deep-copies a session so store boundaries never leak shared
// mutable state back to callers.
func cloneSession(s *combat.Session) *combat.Session {
	clone := *s
	clone.PlayerStatuses = append([]combat.StatusSnapshot(nil), s.PlayerStatuses...)
	clone.MonsterStatuses = append([]combat.StatusSnapshot(nil), s.MonsterStatuses...)
	clone.PlayerGauges = combat.CopyGauges(s.PlayerGauges)
	clone.MonsterGauges = combat.CopyGauges(s.MonsterGauges)
	clone.PlayerCooldowns = combat.CopyCooldowns(s.PlayerCooldowns)
	clone.MonsterCooldowns = combat.CopyCooldowns(s.MonsterCooldowns)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		clone.EndedAt = &ended
	}
	return &clone
}
