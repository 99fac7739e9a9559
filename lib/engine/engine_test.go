package engine

import (
	"github.com/google/uuid"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/stats"
)

// scriptedRNG replays a fixed sequence of rolls, then falls back to neutral
// values. Lets tests pin variance and crit outcomes exactly.
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptedRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// testBattle assembles a started battle around explicit stat lines.
func testBattle(playerStats, monsterStats stats.Block, rng RNG) *Battle {
	playerID := uuid.New()
	player := combat.NewPlayerEntity(playerID, "Hero", playerStats, 100)

	bp := &content.MonsterBlueprint{
		ID:            uuid.New(),
		Name:          "Gloom",
		BaseLevel:     1,
		Behavior:      content.BehaviorBasic,
		XPReward:      25,
		GoldRewardMin: 5,
		GoldRewardMax: 10,
		BaseStats:     monsterStats,
	}
	monster := combat.NewMonsterEntity(bp, 1)

	session := combat.NewSession(playerID, bp.ID, 1, player.MaxHP, player.EchoMax, monster.MaxHP, 1)
	if rng == nil {
		rng = &scriptedRNG{}
	}
	b := NewBattle(session, player, monster, rng)
	session.Start()
	return b
}

// burnDefinition is the canonical DOT used across status tests.
func burnDefinition() *content.StatusDefinition {
	return &content.StatusDefinition{
		Code:        "BURN",
		DisplayName: "Burn",
		IsDebuff:    true,
		TickTrigger: content.TickOnTurnEnd,
		TickEffect: &content.EffectPayload{
			Opcode: "damage",
			Params: map[string]any{
				"formula":     "20",
				"damage_type": "MAGIC",
				"label":       "burn",
			},
		},
	}
}
