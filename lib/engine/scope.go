package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/formula"
)

// BuildScope derives the closed formula variable scope from a source and
// target actor. Source stats appear both bare and S_-prefixed; target stats
// are T_-prefixed. Stats reflect active stat-modifier statuses.
func BuildScope(src, tgt combat.Actor) formula.Scope {
	scope := make(formula.Scope, 48)

	s := src.Base()
	t := tgt.Base()
	sStats := s.EffectiveStats()
	tStats := t.EffectiveStats()

	scope["AD"] = float64(sStats.AD)
	scope["AP"] = float64(sStats.AP)
	scope["ARMOR"] = float64(sStats.Armor)
	scope["MR"] = float64(sStats.MR)
	scope["SPEED"] = float64(sStats.Speed)
	scope["MAX_HP"] = float64(s.MaxHP)
	scope["HP"] = float64(s.CurrentHP)
	scope["CRIT_CHANCE"] = sStats.CritChance
	scope["CRIT_DAMAGE"] = sStats.CritDamage

	scope["S_AD"] = float64(sStats.AD)
	scope["S_AP"] = float64(sStats.AP)
	scope["S_ARMOR"] = float64(sStats.Armor)
	scope["S_MR"] = float64(sStats.MR)
	scope["S_SPEED"] = float64(sStats.Speed)
	scope["S_MAX_HP"] = float64(s.MaxHP)
	scope["S_HP"] = float64(s.CurrentHP)
	scope["S_CRIT_CHANCE"] = sStats.CritChance
	scope["S_CRIT_DAMAGE"] = sStats.CritDamage
	scope["S_HP_PERCENT"] = s.HPPercent()

	scope["T_AD"] = float64(tStats.AD)
	scope["T_AP"] = float64(tStats.AP)
	scope["T_ARMOR"] = float64(tStats.Armor)
	scope["T_MR"] = float64(tStats.MR)
	scope["T_SPEED"] = float64(tStats.Speed)
	scope["T_MAX_HP"] = float64(t.MaxHP)
	scope["T_HP"] = float64(t.CurrentHP)
	scope["T_HP_PERCENT"] = t.HPPercent()
	scope["T_MISSING_HP"] = float64(t.MaxHP - t.CurrentHP)
	scope["T_MISSING_HP_PERCENT"] = 1 - t.HPPercent()

	if player, ok := src.(*combat.PlayerEntity); ok {
		scope["ECHO"] = float64(player.EchoCurrent)
		scope["ECHO_MAX"] = float64(player.EchoMax)
		scope["S_ECHO"] = float64(player.EchoCurrent)
	}

	for _, code := range s.StatusCodes() {
		scope["S_STACKS_"+code] = float64(s.StatusStacks(code))
	}
	for _, code := range t.StatusCodes() {
		scope["T_STACKS_"+code] = float64(t.StatusStacks(code))
	}

	scope["S_SHIELD"] = float64(s.Shield())
	scope["T_SHIELD"] = float64(t.Shield())

	return scope
}

// Eval evaluates a formula against the (src, tgt) scope. Failures are never
// fatal: the result is 0.0 and a warning is logged, matching the contract
// that a bad formula degrades a single effect, not the whole action.
func (b *Battle) Eval(expr string, src, tgt combat.Actor) float64 {
	value, err := formula.Eval(expr, BuildScope(src, tgt))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"formula": expr,
			"error":   err.Error(),
		}).Warn("Formula evaluation failed")
		b.Logf("[WARN] Formula failed: %s", expr)
		return 0
	}
	return value
}

// EvalTruthy evaluates a predicate expression. Errors count as false.
func (b *Battle) EvalTruthy(expr string, src, tgt combat.Actor) bool {
	return formula.Truthy(b.Eval(expr, src, tgt))
}
