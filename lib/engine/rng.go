package engine

import "math/rand"

// RNG is the randomness source a battle owns. Every roll in a combat goes
// through the battle's single RNG so a fixed seed replays identically.
// Tests substitute scripted implementations.
type RNG interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// NewRNG returns a seeded math/rand-backed source.
func NewRNG(seed int64) RNG {
	return rand.New(rand.NewSource(seed))
}
