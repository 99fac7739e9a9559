package combat

import (
	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/stats"
)

// PlayerEntity is the player side of a combat. Adds the Echo gauge, the
// spell loadout from equipped weapons, and consumable charges.
type PlayerEntity struct {
	Entity

	PlayerID        uuid.UUID
	EchoCurrent     int
	EchoMax         int
	AvailableSpells []*content.Spell
	ConsumableUses  int
}

// NewPlayerEntity creates a player entity at full HP and empty Echo.
func NewPlayerEntity(playerID uuid.UUID, name string, block stats.Block, echoMax int) *PlayerEntity {
	if echoMax <= 0 {
		echoMax = 100
	}
	p := &PlayerEntity{
		Entity:   *NewEntity(playerID, name, block),
		PlayerID: playerID,
		EchoMax:  echoMax,
	}
	return p
}

// AddEcho builds Echo, clamped to EchoMax. Returns the amount actually added.
func (p *PlayerEntity) AddEcho(amount int) int {
	if amount < 0 {
		amount = 0
	}
	actual := p.EchoMax - p.EchoCurrent
	if amount < actual {
		actual = amount
	}
	p.EchoCurrent += actual
	return actual
}

// SpendEcho consumes Echo. Returns false (without mutating) if the player
// does not have the full cost.
func (p *PlayerEntity) SpendEcho(cost int) bool {
	if p.EchoCurrent < cost {
		return false
	}
	p.EchoCurrent -= cost
	return true
}

// DrainEcho removes Echo without a full-cost requirement, clamped at zero.
func (p *PlayerEntity) DrainEcho(amount int) {
	p.EchoCurrent -= amount
	if p.EchoCurrent < 0 {
		p.EchoCurrent = 0
	}
}

// SetEcho sets the gauge directly, clamped to [0, EchoMax].
func (p *PlayerEntity) SetEcho(value int) {
	if value < 0 {
		value = 0
	}
	if value > p.EchoMax {
		value = p.EchoMax
	}
	p.EchoCurrent = value
}

// FindSpell returns the equipped spell with the given ID, or nil.
func (p *PlayerEntity) FindSpell(spellID uuid.UUID) *content.Spell {
	for _, spell := range p.AvailableSpells {
		if spell.ID == spellID {
			return spell
		}
	}
	return nil
}

// UseConsumable decrements the remaining consumable charges. Returns false
// when none remain.
func (p *PlayerEntity) UseConsumable() bool {
	if p.ConsumableUses <= 0 {
		return false
	}
	p.ConsumableUses--
	return true
}
