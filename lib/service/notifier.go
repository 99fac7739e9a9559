package service

import (
	"sync"

	"github.com/google/uuid"
)

// Notifier fans combat-log lines out to live watchers (the websocket
// endpoint). Slow subscribers drop lines rather than block an action.
type Notifier struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan string]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uuid.UUID]map[chan string]struct{})}
}

// Subscribe registers a watcher for a player's combat log. The returned
// cancel function must be called when the watcher goes away.
func (n *Notifier) Subscribe(playerID uuid.UUID) (<-chan string, func()) {
	ch := make(chan string, 64)
	n.mu.Lock()
	if n.subs[playerID] == nil {
		n.subs[playerID] = make(map[chan string]struct{})
	}
	n.subs[playerID][ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if set, ok := n.subs[playerID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(n.subs, playerID)
			}
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers lines to every watcher of the player.
func (n *Notifier) Publish(playerID uuid.UUID, lines []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[playerID] {
		for _, line := range lines {
			select {
			case ch <- line:
			default:
			}
		}
	}
}
