package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// MemoryStore is an in-memory Store backed by the loaded catalog. It is the
// default for tests and the substrate the file store persists.
type MemoryStore struct {
	mu       sync.RWMutex
	catalog  *content.Catalog
	players  map[uuid.UUID]*PlayerRecord
	equipped map[uuid.UUID][]*EquippedItem
	sessions map[uuid.UUID]*combat.Session
	logs     []*combat.LogEntry
}

// NewMemoryStore creates an empty store over a catalog.
func NewMemoryStore(catalog *content.Catalog) *MemoryStore {
	return &MemoryStore{
		catalog:  catalog,
		players:  make(map[uuid.UUID]*PlayerRecord),
		equipped: make(map[uuid.UUID][]*EquippedItem),
		sessions: make(map[uuid.UUID]*combat.Session),
	}
}

// PutPlayer seeds or replaces a player record.
func (m *MemoryStore) PutPlayer(p *PlayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := *p
	m.players[p.ID] = &record
}

// Equip attaches an equipped item to a player.
func (m *MemoryStore) Equip(playerID uuid.UUID, item *EquippedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equipped[playerID] = append(m.equipped[playerID], item)
}

// Logs returns a snapshot of every appended log entry.
func (m *MemoryStore) Logs() []*combat.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*combat.LogEntry(nil), m.logs...)
}

func (m *MemoryStore) LoadSession(ctx context.Context, id uuid.UUID) (*combat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (m *MemoryStore) ActiveSessionForPlayer(ctx context.Context, playerID uuid.UUID) (*combat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, session := range m.sessions {
		if session.PlayerID == playerID && session.IsActive() {
			return cloneSession(session), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *combat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) PersistSession(ctx context.Context, session *combat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != session.Version {
		return ErrVersionConflict
	}
	session.Version++
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) AppendLogs(ctx context.Context, entries []*combat.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entries...)
	return nil
}

func (m *MemoryStore) AllStatusDefinitions(ctx context.Context) ([]*content.StatusDefinition, error) {
	defs := make([]*content.StatusDefinition, 0, len(m.catalog.StatusDefs))
	for _, def := range m.catalog.StatusDefs {
		defs = append(defs, def)
	}
	return defs, nil
}

func (m *MemoryStore) MonsterBlueprint(ctx context.Context, id uuid.UUID) (*content.MonsterBlueprint, error) {
	bp, ok := m.catalog.Monsters[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return bp, nil
}

func (m *MemoryStore) Player(ctx context.Context, id uuid.UUID) (*PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	player, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	record := *player
	return &record, nil
}

func (m *MemoryStore) EquippedItems(ctx context.Context, playerID uuid.UUID) ([]*EquippedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*EquippedItem(nil), m.equipped[playerID]...), nil
}

func (m *MemoryStore) AddXP(ctx context.Context, playerID uuid.UUID, xp int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	gained := applyXP(player, xp)
	return player.Level, gained, nil
}

func (m *MemoryStore) AddGold(ctx context.Context, playerID uuid.UUID, gold int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	player.Gold += int64(gold)
	return nil
}

var _ Store = (*MemoryStore)(nil)
