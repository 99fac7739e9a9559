package combat

import (
	"time"

	"github.com/google/uuid"
)

// LogEntry is one structured line of the combat log. Entries are appended to
// the combat_logs table and the last ten messages are echoed back in every
// state payload.
type LogEntry struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  uuid.UUID   `json:"session_id"`
	Turn       int         `json:"turn"`
	Actor      string      `json:"actor"`
	ActionType string      `json:"action_type"`
	SpellID    *uuid.UUID  `json:"spell_id,omitempty"`
	Damage     int         `json:"damage"`
	DamageType *DamageType `json:"damage_type,omitempty"`
	WasCrit    bool        `json:"was_critical"`
	EchoGained int         `json:"echo_gained"`
	Message    string      `json:"message"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewLogEntry creates a log line bound to a session and turn.
func NewLogEntry(sessionID uuid.UUID, turn int, actor, actionType, message string) *LogEntry {
	return &LogEntry{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Turn:       turn,
		Actor:      actor,
		ActionType: actionType,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
}

// Messages extracts the plain message strings from a slice of entries.
func Messages(entries []*LogEntry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Message
	}
	return out
}

// TailMessages returns the last n messages.
func TailMessages(entries []*LogEntry, n int) []string {
	msgs := Messages(entries)
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}
