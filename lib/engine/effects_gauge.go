package engine

import (
	"github.com/echoesrpg/echoes-server/lib/combat"
)

func init() {
	register("build_gauge", effectBuildGauge)
	register("consume_gauge", effectConsumeGauge)
	register("set_gauge", effectSetGauge)
}

// gaugeEcho is special-cased: for players it maps onto the Echo gauge with
// its [0, echo_max] clamp instead of a generic counter.
const gaugeEcho = "echo"

// effectBuildGauge adds to (or drains from) a named gauge.
//
// Params: gauge ("echo"), amount, formula (overrides amount),
// only_if_target_has_status, target_self (default true for echo).
func effectBuildGauge(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	gauge := paramString(params, "gauge", gaugeEcho)
	amount := paramInt(params, "amount", 0)
	targetSelf := paramBool(params, "target_self", gauge == gaugeEcho)

	if condition := paramString(params, "only_if_target_has_status", ""); condition != "" {
		if !tgt.Base().HasStatus(condition) {
			return nil
		}
	}

	if expr := paramString(params, "formula", ""); expr != "" {
		amount = int(b.Eval(expr, src, tgt))
	}

	actor := tgt
	if targetSelf {
		actor = src
	}

	if gauge == gaugeEcho {
		if player, ok := actor.(*combat.PlayerEntity); ok {
			if amount > 0 {
				added := player.AddEcho(amount)
				b.Logf("%s gains %d Echo (total: %d)", player.Name, added, player.EchoCurrent)
			} else if amount < 0 {
				player.DrainEcho(-amount)
				b.Logf("%s loses %d Echo (total: %d)", player.Name, -amount, player.EchoCurrent)
			}
			return nil
		}
	}

	entity := actor.Base()
	oldValue := entity.Gauges[gauge]
	newValue := oldValue + amount
	if newValue < 0 {
		newValue = 0
	}
	entity.Gauges[gauge] = newValue

	if amount > 0 {
		b.Logf("%s gains %d %s (total: %d)", entity.Name, amount, gauge, newValue)
	} else if amount < 0 {
		b.Logf("%s loses %d %s (total: %d)", entity.Name, -amount, gauge, newValue)
	}
	return nil
}

// effectConsumeGauge spends from the source's gauge, optionally requiring
// the full amount to be available.
//
// Params: gauge, amount, require_full (true).
func effectConsumeGauge(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	gauge := paramString(params, "gauge", gaugeEcho)
	amount := paramInt(params, "amount", 0)
	requireFull := paramBool(params, "require_full", true)

	if gauge == gaugeEcho {
		if player, ok := src.(*combat.PlayerEntity); ok {
			if requireFull && player.EchoCurrent < amount {
				b.Logf("Not enough Echo (%d/%d)", player.EchoCurrent, amount)
				return nil
			}
			consumed := amount
			if player.EchoCurrent < consumed {
				consumed = player.EchoCurrent
			}
			player.DrainEcho(consumed)
			b.Logf("%s consumed %d Echo", player.Name, consumed)
			return nil
		}
	}

	entity := src.Base()
	current := entity.Gauges[gauge]
	if requireFull && current < amount {
		b.Logf("Not enough %s (%d/%d)", gauge, current, amount)
		return nil
	}
	consumed := amount
	if current < consumed {
		consumed = current
	}
	entity.Gauges[gauge] = current - consumed
	b.Logf("%s consumed %d %s", entity.Name, consumed, gauge)
	return nil
}

// effectSetGauge pins a gauge to a fixed value.
//
// Params: gauge, value, target_self (true).
func effectSetGauge(b *Battle, src, tgt combat.Actor, params map[string]any) error {
	gauge := paramString(params, "gauge", gaugeEcho)
	value := paramInt(params, "value", 0)
	targetSelf := paramBool(params, "target_self", true)

	actor := tgt
	if targetSelf {
		actor = src
	}

	if gauge == gaugeEcho {
		if player, ok := actor.(*combat.PlayerEntity); ok {
			player.SetEcho(value)
			b.Logf("%s's Echo set to %d", player.Name, player.EchoCurrent)
			return nil
		}
	}

	entity := actor.Base()
	if value < 0 {
		value = 0
	}
	entity.Gauges[gauge] = value
	b.Logf("%s's %s set to %d", entity.Name, gauge, value)
	return nil
}
