package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/stats"
)

func TestBasicAttack_Deterministic(t *testing.T) {
	// Variance roll of 0.5 maps to a 1.0 multiplier; crit chance is zero.
	b := testBattle(
		stats.Block{MaxHP: 100, AD: 20, CritChance: 0, CritDamage: 1.5, Speed: 10},
		stats.Block{MaxHP: 100, Armor: 0, MR: 0},
		&scriptedRNG{floats: []float64{0.5, 0.99}},
	)

	require.NoError(t, b.PlayerBasicAttack())

	require.NotNil(t, b.LastDamage)
	assert.Equal(t, 20, b.LastDamage.Final)
	assert.False(t, b.LastDamage.WasCritical)
	assert.Equal(t, 80, b.Monster.CurrentHP)
	assert.Equal(t, 5, b.Player.EchoCurrent)
}

func TestDamage_PhysicalMitigation(t *testing.T) {
	b := testBattle(
		stats.Block{MaxHP: 100, AD: 100},
		stats.Block{MaxHP: 200, Armor: 100},
		nil,
	)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage",
		Params: map[string]any{"formula": "AD * 1.0", "damage_type": "PHYSICAL"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 50, b.LastDamage.Final)
	assert.Equal(t, 150, b.Monster.CurrentHP)
}

func TestDamage_CritMultiplies(t *testing.T) {
	// First float: crit roll (no variance param). 0.0 < 0.5 crit chance.
	b := testBattle(
		stats.Block{MaxHP: 100, AD: 20, CritChance: 0.5, CritDamage: 2.0},
		stats.Block{MaxHP: 100},
		&scriptedRNG{floats: []float64{0.0}},
	)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage",
		Params: map[string]any{"formula": "AD", "damage_type": "TRUE", "can_crit": true},
	}})
	require.NoError(t, err)

	assert.Equal(t, 40, b.LastDamage.Final)
	assert.True(t, b.LastDamage.WasCritical)
}

func TestDamage_ShieldAbsorbs(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 50}, stats.Block{MaxHP: 100}, nil)
	b.Monster.Gauges[combat.GaugeShield] = 30

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage",
		Params: map[string]any{"formula": "AD", "damage_type": "PHYSICAL"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 0, b.Monster.Shield())
	assert.Equal(t, 20, b.LastDamage.Final)
	assert.Equal(t, 80, b.Monster.CurrentHP)
}

func TestDamagePercent_MaxAndMissingHP(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 200}, nil)
	b.Monster.CurrentHP = 100

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage_percent_max_hp",
		Params: map[string]any{"percent": 0.1, "damage_type": "TRUE"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 80, b.Monster.CurrentHP)

	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage_percent_missing_hp",
		Params: map[string]any{"percent": 0.5, "damage_type": "TRUE"},
	}})
	require.NoError(t, err)
	// Missing 120 -> 60 more damage.
	assert.Equal(t, 20, b.Monster.CurrentHP)
}

func TestHeal_ClampsAtMaxHP(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AP: 50}, stats.Block{MaxHP: 100}, nil)
	b.Player.CurrentHP = 80

	err := b.RunEffects(b.Player, b.Player, []content.EffectPayload{{
		Opcode: "heal",
		Params: map[string]any{"formula": "AP * 1.0"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 100, b.Player.CurrentHP)
}

func TestLifesteal_UsesLastDamage(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 40}, stats.Block{MaxHP: 200}, nil)
	b.Player.CurrentHP = 50

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{
		{Opcode: "damage", Params: map[string]any{"formula": "AD", "damage_type": "TRUE"}, Order: 0},
		{Opcode: "lifesteal", Params: map[string]any{"percent": 0.5}, Order: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 70, b.Player.CurrentHP)
}

func TestLifesteal_NoDamageIsNoop(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Player.CurrentHP = 50

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "lifesteal",
		Params: map[string]any{"percent": 0.5},
	}})
	require.NoError(t, err)
	assert.Equal(t, 50, b.Player.CurrentHP)
}

func TestRunEffects_OrderAndUnknownOpcode(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 10}, stats.Block{MaxHP: 100}, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{
		{Opcode: "lifesteal", Params: map[string]any{"percent": 1.0}, Order: 1},
		{Opcode: "no_such_opcode", Order: 0},
		{Opcode: "damage", Params: map[string]any{"formula": "AD", "damage_type": "TRUE"}, Order: 0},
	})
	require.NoError(t, err)

	// Unknown opcode logged, damage ran before lifesteal despite list order.
	assert.Equal(t, 90, b.Monster.CurrentHP)
	found := false
	for _, entry := range b.Logs {
		if entry.Message == "[WARN] Unknown opcode: no_such_opcode" {
			found = true
		}
	}
	assert.True(t, found, "expected unknown-opcode warning in combat log")
}

func TestApplyStatus_ChanceAndResist(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, &scriptedRNG{floats: []float64{0.9}})
	b.RegisterStatusDefinitions([]*content.StatusDefinition{burnDefinition()})

	// 50% chance, roll 0.9 -> resisted.
	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "apply_status",
		Params: map[string]any{"status_code": "BURN", "duration_turns": 3, "chance": "0.5"},
	}})
	require.NoError(t, err)
	assert.False(t, b.Monster.HasStatus("BURN"))

	// Default chance 1 always lands.
	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "apply_status",
		Params: map[string]any{"status_code": "BURN", "duration_turns": 3},
	}})
	require.NoError(t, err)
	assert.True(t, b.Monster.HasStatus("BURN"))
	assert.Equal(t, 3, b.Monster.Status("BURN").Remaining)
}

func TestApplyStatus_RefreshKeepsLargerDuration(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	stackable := &content.StatusDefinition{
		Code: "BLEED", IsDebuff: true, IsStackable: true, MaxStacks: 3,
		TickTrigger: content.TickOnTurnEnd,
	}
	b.RegisterStatusDefinitions([]*content.StatusDefinition{stackable})

	apply := func(duration int) {
		err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
			Opcode: "apply_status",
			Params: map[string]any{"status_code": "BLEED", "duration_turns": duration},
		}})
		require.NoError(t, err)
	}

	apply(4)
	apply(2)
	inst := b.Monster.Status("BLEED")
	require.NotNil(t, inst)
	assert.Equal(t, 4, inst.Remaining)
	assert.Equal(t, 2, inst.Stacks)

	apply(1)
	apply(1)
	assert.Equal(t, 3, inst.Stacks, "stacks capped by definition")
}

func TestApplyStatus_ImmediateTickRunsOnce(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.RegisterStatusDefinitions([]*content.StatusDefinition{{
		Code:        "SHOCK",
		TickTrigger: content.TickImmediate,
		TickEffect: &content.EffectPayload{
			Opcode: "damage",
			Params: map[string]any{"formula": "15", "damage_type": "TRUE"},
		},
	}})

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "apply_status",
		Params: map[string]any{"status_code": "SHOCK", "duration_turns": 2},
	}})
	require.NoError(t, err)

	assert.Equal(t, 85, b.Monster.CurrentHP)

	// Turn ticks do not fire IMMEDIATE statuses again.
	b.ProcessTurnEnd(b.Monster)
	assert.Equal(t, 85, b.Monster.CurrentHP)
}

func TestRemoveStatus_Sweeps(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.RegisterStatusDefinitions([]*content.StatusDefinition{
		{Code: "BURN", IsDebuff: true},
		{Code: "MIGHT", IsDebuff: false},
	})
	b.Monster.AddStatus("BURN", 3, 1, 1, nil)
	b.Monster.AddStatus("MIGHT", 3, 1, 1, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "remove_status",
		Params: map[string]any{"all_debuffs": true},
	}})
	require.NoError(t, err)

	assert.False(t, b.Monster.HasStatus("BURN"))
	assert.True(t, b.Monster.HasStatus("MIGHT"))

	// Removing an absent named status twice is a logged no-op.
	for i := 0; i < 2; i++ {
		err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
			Opcode: "remove_status",
			Params: map[string]any{"status_code": "BURN"},
		}})
		require.NoError(t, err)
	}
}

func TestTransferStatus(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Player.AddStatus("CURSE", 4, 2, 5, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "transfer_status",
		Params: map[string]any{"status_code": "CURSE"},
	}})
	require.NoError(t, err)

	assert.False(t, b.Player.HasStatus("CURSE"))
	assert.Equal(t, 2, b.Monster.StatusStacks("CURSE"))
	assert.Equal(t, 4, b.Monster.Status("CURSE").Remaining)
}

func TestShield_BuildAndRemove(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AP: 40}, stats.Block{MaxHP: 100}, nil)

	err := b.RunEffects(b.Player, b.Player, []content.EffectPayload{{
		Opcode: "shield",
		Params: map[string]any{"formula": "AP * 0.5 + 10"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 30, b.Player.Shield())

	err = b.RunEffects(b.Monster, b.Player, []content.EffectPayload{{
		Opcode: "remove_shield",
		Params: map[string]any{"amount": 10},
	}})
	require.NoError(t, err)
	assert.Equal(t, 20, b.Player.Shield())

	err = b.RunEffects(b.Monster, b.Player, []content.EffectPayload{{
		Opcode: "remove_shield",
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Player.Shield())
}

func TestBuildGauge_EchoClampAndCondition(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "build_gauge",
		Params: map[string]any{"gauge": "echo", "amount": 250},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, b.Player.EchoCurrent)

	// Conditional gauge gain requires the target status.
	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "build_gauge",
		Params: map[string]any{"gauge": "fury", "amount": 3, "target_self": true, "only_if_target_has_status": "BURN"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Player.Gauges["fury"])

	b.Monster.AddStatus("BURN", 2, 1, 1, nil)
	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "build_gauge",
		Params: map[string]any{"gauge": "fury", "amount": 3, "target_self": true, "only_if_target_has_status": "BURN"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Player.Gauges["fury"])
}

func TestConsumeGauge_RequireFull(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Player.Gauges["fury"] = 2

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "consume_gauge",
		Params: map[string]any{"gauge": "fury", "amount": 5},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Player.Gauges["fury"])

	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "consume_gauge",
		Params: map[string]any{"gauge": "fury", "amount": 5, "require_full": false},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Player.Gauges["fury"])
}

func TestBonusDamageIfStatus_ConsumesStatus(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 30}, stats.Block{MaxHP: 100}, nil)

	// No status: no damage.
	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "bonus_damage_if_target_has_status",
		Params: map[string]any{"status_code": "CHILL", "formula": "AD", "damage_type": "TRUE"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, b.Monster.CurrentHP)

	b.Monster.AddStatus("CHILL", 2, 1, 1, nil)
	err = b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "bonus_damage_if_target_has_status",
		Params: map[string]any{"status_code": "CHILL", "formula": "AD", "damage_type": "TRUE", "consume_status": true},
	}})
	require.NoError(t, err)
	assert.Equal(t, 70, b.Monster.CurrentHP)
	assert.False(t, b.Monster.HasStatus("CHILL"))
}

func TestBonusDamagePerStack(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Monster.AddStatus("BLEED", 3, 4, 5, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "bonus_damage_per_stack",
		Params: map[string]any{"status_code": "BLEED", "damage_per_stack": 10, "damage_type": "TRUE", "consume_stacks": true},
	}})
	require.NoError(t, err)

	assert.Equal(t, 60, b.Monster.CurrentHP)
	assert.False(t, b.Monster.HasStatus("BLEED"))
}

func TestExecuteIfLowHP_BossImmunity(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Monster.CurrentHP = 10

	execute := []content.EffectPayload{{
		Opcode: "execute_if_low_hp",
		Params: map[string]any{"threshold_percent": 0.15},
	}}

	b.Monster.IsBoss = true
	require.NoError(t, b.RunEffects(b.Player, b.Monster, execute))
	assert.Equal(t, 10, b.Monster.CurrentHP)

	b.Monster.IsBoss = false
	require.NoError(t, b.RunEffects(b.Player, b.Monster, execute))
	assert.Equal(t, 0, b.Monster.CurrentHP)
}

func TestExecuteIfLowHP_AboveThreshold(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Monster.CurrentHP = 50

	require.NoError(t, b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "execute_if_low_hp",
		Params: map[string]any{"threshold_percent": 0.15},
	}}))
	assert.Equal(t, 50, b.Monster.CurrentHP)
}

func TestIfCondition_RunsExactlyOneBranch(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)
	b.Monster.CurrentHP = 20

	payload := []content.EffectPayload{{
		Opcode: "if_condition",
		Params: map[string]any{
			"condition": "T_HP_PERCENT < 0.5",
			"then_effects": []any{
				map[string]any{"opcode": "damage", "params": map[string]any{"formula": "10", "damage_type": "TRUE"}},
			},
			"else_effects": []any{
				map[string]any{"opcode": "heal", "params": map[string]any{"formula": "10"}},
			},
		},
	}}

	require.NoError(t, b.RunEffects(b.Player, b.Monster, payload))
	assert.Equal(t, 10, b.Monster.CurrentHP, "then branch only")

	b.Monster.CurrentHP = 90
	require.NoError(t, b.RunEffects(b.Player, b.Monster, payload))
	assert.Equal(t, 100, b.Monster.CurrentHP, "else branch only")
}

func TestModifyStat_StructuredBuff(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 20}, stats.Block{MaxHP: 100, AD: 30}, nil)

	err := b.RunEffects(b.Player, b.Player, []content.EffectPayload{{
		Opcode: "modify_stat",
		Params: map[string]any{"stat": "AD", "formula": "10", "duration_turns": 2},
	}})
	require.NoError(t, err)

	assert.True(t, b.Player.HasStatus("STAT_AD_+10"))
	assert.Equal(t, 30, b.Player.EffectiveStats().AD)

	inst := b.Player.Status("STAT_AD_+10")
	require.NotNil(t, inst.Modifier)
	assert.Equal(t, "AD", inst.Modifier.Stat)
	assert.Equal(t, 10, inst.Modifier.Delta)
}

func TestStealStat_BothSides(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100, AD: 20}, stats.Block{MaxHP: 100, AD: 30}, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "steal_stat",
		Params: map[string]any{"stat": "AD", "amount": 10, "duration_turns": 2},
	}})
	require.NoError(t, err)

	assert.Equal(t, 30, b.Player.EffectiveStats().AD)
	assert.Equal(t, 20, b.Monster.EffectiveStats().AD)
}

func TestFormulaFailure_IsNonFatal(t *testing.T) {
	b := testBattle(stats.Block{MaxHP: 100}, stats.Block{MaxHP: 100}, nil)

	err := b.RunEffects(b.Player, b.Monster, []content.EffectPayload{{
		Opcode: "damage",
		Params: map[string]any{"formula": "TOTALLY_UNKNOWN * 2", "damage_type": "TRUE"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, b.Monster.CurrentHP, "failed formula deals 0")
}
