package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// FileStore persists the whole game state as one JSON document with atomic
// temp-file-then-rename writes. Suitable for single-node deployments and
// offline tooling; it layers durability over a MemoryStore and reuses its
// query logic.
type FileStore struct {
	mu   sync.Mutex
	path string
	mem  *MemoryStore
}

// fileState is the serialized shape of the store.
type fileState struct {
	SaveVersion string                        `json:"saveVersion"`
	Players     map[string]*PlayerRecord      `json:"players"`
	Equipped    map[string][]fileEquippedItem `json:"equipped"`
	Sessions    map[string]*combat.Session    `json:"sessions"`
	Logs        []*combat.LogEntry            `json:"logs"`
}

// fileEquippedItem stores the blueprint by ID; the catalog resolves it on
// load.
type fileEquippedItem struct {
	BlueprintID string `json:"blueprintId"`
	ItemLevel   int    `json:"itemLevel"`
}

const fileSaveVersion = "1"

// NewFileStore opens (or initializes) a file-backed store at path.
func NewFileStore(path string, catalog *content.Catalog) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		mem:  NewMemoryStore(catalog),
	}
	if err := fs.load(catalog); err != nil {
		return nil, err
	}
	return fs, nil
}

// load reads the state file if it exists and replays it into the memory
// layer. A missing file is a fresh store, not an error.
func (f *FileStore) load(catalog *content.Catalog) error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		logrus.WithField("path", f.path).Info("No existing state file, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file %s: %w", f.path, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}

	for _, player := range state.Players {
		f.mem.PutPlayer(player)
	}
	for playerID, items := range state.Equipped {
		id, err := uuid.Parse(playerID)
		if err != nil {
			continue
		}
		for _, item := range items {
			bp, ok := catalog.Items[item.BlueprintID]
			if !ok {
				logrus.WithFields(logrus.Fields{
					"player":    playerID,
					"blueprint": item.BlueprintID,
				}).Warn("Equipped item blueprint missing from catalog, skipping")
				continue
			}
			f.mem.Equip(id, &EquippedItem{Blueprint: bp, ItemLevel: item.ItemLevel})
		}
	}
	for _, session := range state.Sessions {
		f.mem.sessions[session.ID] = session
	}
	f.mem.logs = state.Logs

	logrus.WithFields(logrus.Fields{
		"path":     f.path,
		"players":  len(state.Players),
		"sessions": len(state.Sessions),
	}).Info("State file loaded")
	return nil
}

// flush atomically writes the current state: marshal to a temp file in the
// same directory, then rename over the target so a crash mid-write never
// corrupts the previous save.
func (f *FileStore) flush() error {
	f.mem.mu.RLock()
	state := fileState{
		SaveVersion: fileSaveVersion,
		Players:     make(map[string]*PlayerRecord, len(f.mem.players)),
		Equipped:    make(map[string][]fileEquippedItem, len(f.mem.equipped)),
		Sessions:    make(map[string]*combat.Session, len(f.mem.sessions)),
		Logs:        append([]*combat.LogEntry(nil), f.mem.logs...),
	}
	for id, player := range f.mem.players {
		record := *player
		state.Players[id.String()] = &record
	}
	for id, items := range f.mem.equipped {
		encoded := make([]fileEquippedItem, 0, len(items))
		for _, item := range items {
			encoded = append(encoded, fileEquippedItem{
				BlueprintID: item.Blueprint.ID.String(),
				ItemLevel:   item.ItemLevel,
			})
		}
		state.Equipped[id.String()] = encoded
	}
	for id, session := range f.mem.sessions {
		state.Sessions[id.String()] = cloneSession(session)
	}
	f.mem.mu.RUnlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// PutPlayer seeds a player and persists.
func (f *FileStore) PutPlayer(p *PlayerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mem.PutPlayer(p)
	return f.flush()
}

// Equip attaches gear to a player and persists.
func (f *FileStore) Equip(playerID uuid.UUID, item *EquippedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mem.Equip(playerID, item)
	return f.flush()
}

func (f *FileStore) LoadSession(ctx context.Context, id uuid.UUID) (*combat.Session, error) {
	return f.mem.LoadSession(ctx, id)
}

func (f *FileStore) ActiveSessionForPlayer(ctx context.Context, playerID uuid.UUID) (*combat.Session, error) {
	return f.mem.ActiveSessionForPlayer(ctx, playerID)
}

func (f *FileStore) CreateSession(ctx context.Context, session *combat.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.CreateSession(ctx, session); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) PersistSession(ctx context.Context, session *combat.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.PersistSession(ctx, session); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) AppendLogs(ctx context.Context, entries []*combat.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.AppendLogs(ctx, entries); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) AllStatusDefinitions(ctx context.Context) ([]*content.StatusDefinition, error) {
	return f.mem.AllStatusDefinitions(ctx)
}

func (f *FileStore) MonsterBlueprint(ctx context.Context, id uuid.UUID) (*content.MonsterBlueprint, error) {
	return f.mem.MonsterBlueprint(ctx, id)
}

func (f *FileStore) Player(ctx context.Context, id uuid.UUID) (*PlayerRecord, error) {
	return f.mem.Player(ctx, id)
}

func (f *FileStore) EquippedItems(ctx context.Context, playerID uuid.UUID) ([]*EquippedItem, error) {
	return f.mem.EquippedItems(ctx, playerID)
}

func (f *FileStore) AddXP(ctx context.Context, playerID uuid.UUID, xp int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	level, gained, err := f.mem.AddXP(ctx, playerID, xp)
	if err != nil {
		return level, gained, err
	}
	return level, gained, f.flush()
}

func (f *FileStore) AddGold(ctx context.Context, playerID uuid.UUID, gold int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.AddGold(ctx, playerID, gold); err != nil {
		return err
	}
	return f.flush()
}

var _ Store = (*FileStore)(nil)
