package engine

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// Handler executes one effect opcode against the battle. Handlers mutate
// entities, gauges, cooldowns and the battle's LastDamage slot; they never
// touch the store.
type Handler func(b *Battle, src, tgt combat.Actor, params map[string]any) error

// registry maps opcode strings to handlers. Populated by the package init
// functions in the effects_*.go files; read-only after startup.
var registry = map[string]Handler{}

func register(opcode string, fn Handler) {
	if _, exists := registry[opcode]; exists {
		logrus.WithField("opcode", opcode).Warn("Overwriting existing effect opcode")
	}
	registry[opcode] = fn
}

// RegisteredOpcodes returns all known opcodes, sorted.
func RegisteredOpcodes() []string {
	opcodes := make([]string, 0, len(registry))
	for opcode := range registry {
		opcodes = append(opcodes, opcode)
	}
	sort.Strings(opcodes)
	return opcodes
}

// IsRegistered reports whether an opcode has a handler.
func IsRegistered(opcode string) bool {
	_, ok := registry[opcode]
	return ok
}

// RunEffects executes an effect list in ascending (order, list index).
// Unknown opcodes log a warning into the combat log and are skipped; a
// handler error or panic aborts the remaining effects and surfaces as a
// fatal-to-this-action error.
func (b *Battle) RunEffects(src, tgt combat.Actor, effects []content.EffectPayload) error {
	ordered := make([]content.EffectPayload, len(effects))
	copy(ordered, effects)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, effect := range ordered {
		if effect.Opcode == "" {
			b.Logf("[WARN] Effect missing opcode")
			continue
		}
		fn, ok := registry[effect.Opcode]
		if !ok {
			b.Logf("[WARN] Unknown opcode: %s", effect.Opcode)
			continue
		}
		if err := b.invoke(fn, effect.Opcode, src, tgt, effect.Params); err != nil {
			b.Logf("[ERROR] Effect %s failed: %v", effect.Opcode, err)
			return fmt.Errorf("effect %s: %w", effect.Opcode, err)
		}
	}
	return nil
}

// invoke runs a single handler, converting panics into errors so one bad
// effect cannot take the whole process down.
func (b *Battle) invoke(fn Handler, opcode string, src, tgt combat.Actor, params map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"opcode": opcode,
				"panic":  r,
			}).Error("Effect handler panicked")
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	if params == nil {
		params = map[string]any{}
	}
	return fn(b, src, tgt, params)
}
