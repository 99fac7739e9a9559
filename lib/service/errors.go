package service

import "errors"

// Failure kinds surfaced to callers. Preconditions leave session state
// untouched; the API layer maps these onto HTTP status codes.
var (
	ErrEntityNotFound         = errors.New("entity not found")
	ErrAlreadyInCombat        = errors.New("already in an active combat session")
	ErrNotSessionOwner        = errors.New("not your combat session")
	ErrUnknownAction          = errors.New("unknown action type")
	ErrSpellRequired          = errors.New("spell_id required for spell action")
	ErrSpellNotAvailable      = errors.New("spell not found or not available")
	ErrNoConsumableEquipped   = errors.New("no consumable equipped")
	ErrConcurrentModification = errors.New("session was modified concurrently")
)
