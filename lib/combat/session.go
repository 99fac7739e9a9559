package combat

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a combat session.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusPlayerTurn  Status = "PLAYER_TURN"
	StatusMonsterTurn Status = "MONSTER_TURN"
	StatusVictory     Status = "VICTORY"
	StatusDefeat      Status = "DEFEAT"
	StatusAbandoned   Status = "ABANDONED"
)

// Turn owner markers stored in CurrentTurnEntity.
const (
	TurnPlayer  = "player"
	TurnMonster = "monster"
)

// StatusSnapshot is the persisted form of one active status. Snapshots are
// stored as an ordered list so tick order survives a reload.
type StatusSnapshot struct {
	Code      string        `json:"code"`
	Remaining int           `json:"remaining"`
	Stacks    int           `json:"stacks"`
	Modifier  *StatModifier `json:"modifier,omitempty"`
}

// Session is the persistent record of one combat. It owns the authoritative
// snapshots; runtime entities are derived from it per action and synced back
// before the action returns. Version implements optimistic write-back.
type Session struct {
	ID                 uuid.UUID
	PlayerID           uuid.UUID
	MonsterBlueprintID uuid.UUID
	MonsterLevel       int
	Status             Status
	TurnCount          int
	CurrentTurnEntity  string
	Version            int64

	PlayerCurrentHP   int
	PlayerMaxHP       int
	PlayerEchoCurrent int
	PlayerEchoMax     int
	PlayerStatuses    []StatusSnapshot
	PlayerGauges      map[string]int
	PlayerCooldowns   map[uuid.UUID]int
	ConsumableUses    int

	MonsterCurrentHP int
	MonsterMaxHP     int
	MonsterStatuses  []StatusSnapshot
	MonsterGauges    map[string]int
	MonsterCooldowns map[uuid.UUID]int

	StartedAt time.Time
	EndedAt   *time.Time
}

// NewSession creates a pending session with full-HP snapshots for both sides.
func NewSession(playerID, monsterBPID uuid.UUID, monsterLevel, playerMaxHP, playerEchoMax, monsterMaxHP, consumableUses int) *Session {
	return &Session{
		ID:                 uuid.New(),
		PlayerID:           playerID,
		MonsterBlueprintID: monsterBPID,
		MonsterLevel:       monsterLevel,
		Status:             StatusPending,
		CurrentTurnEntity:  TurnPlayer,
		PlayerCurrentHP:    playerMaxHP,
		PlayerMaxHP:        playerMaxHP,
		PlayerEchoMax:      playerEchoMax,
		PlayerGauges:       map[string]int{},
		PlayerCooldowns:    map[uuid.UUID]int{},
		ConsumableUses:     consumableUses,
		MonsterCurrentHP:   monsterMaxHP,
		MonsterMaxHP:       monsterMaxHP,
		MonsterGauges:      map[string]int{},
		MonsterCooldowns:   map[uuid.UUID]int{},
		StartedAt:          time.Now().UTC(),
	}
}

// Start moves the session into the first player turn.
func (s *Session) Start() {
	s.Status = StatusPlayerTurn
	s.TurnCount = 1
	s.CurrentTurnEntity = TurnPlayer
}

// NextTurn alternates the turn owner. The turn counter increments when the
// turn comes back around to the player.
func (s *Session) NextTurn() {
	if s.CurrentTurnEntity == TurnPlayer {
		s.CurrentTurnEntity = TurnMonster
		s.Status = StatusMonsterTurn
	} else {
		s.CurrentTurnEntity = TurnPlayer
		s.Status = StatusPlayerTurn
		s.TurnCount++
	}
}

// EndVictory terminates the session with a player win.
func (s *Session) EndVictory() { s.end(StatusVictory) }

// EndDefeat terminates the session with a player loss.
func (s *Session) EndDefeat() { s.end(StatusDefeat) }

// Abandon terminates the session after a successful flee.
func (s *Session) Abandon() { s.end(StatusAbandoned) }

func (s *Session) end(status Status) {
	s.Status = status
	now := time.Now().UTC()
	s.EndedAt = &now
}

// IsActive reports whether the combat can still accept actions.
func (s *Session) IsActive() bool {
	switch s.Status {
	case StatusPending, StatusPlayerTurn, StatusMonsterTurn:
		return true
	}
	return false
}

// IsTerminal reports whether the session reached a final state.
func (s *Session) IsTerminal() bool { return !s.IsActive() }

// SnapshotStatuses captures an entity's statuses in insertion order.
func SnapshotStatuses(e *Entity) []StatusSnapshot {
	snaps := make([]StatusSnapshot, 0, e.StatusCount())
	for _, code := range e.StatusCodes() {
		inst := e.Status(code)
		snaps = append(snaps, StatusSnapshot{
			Code:      code,
			Remaining: inst.Remaining,
			Stacks:    inst.Stacks,
			Modifier:  inst.Modifier,
		})
	}
	return snaps
}

// RestoreStatuses reinstates persisted statuses onto an entity, preserving
// the stored order.
func RestoreStatuses(e *Entity, snaps []StatusSnapshot) {
	for _, snap := range snaps {
		e.RestoreStatus(snap.Code, StatusInstance{
			Remaining: snap.Remaining,
			Stacks:    snap.Stacks,
			Modifier:  snap.Modifier,
		})
	}
}

// CopyGauges clones a gauge map, tolerating nil.
func CopyGauges(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CopyCooldowns clones a cooldown map, tolerating nil.
func CopyCooldowns(src map[uuid.UUID]int) map[uuid.UUID]int {
	dst := make(map[uuid.UUID]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
