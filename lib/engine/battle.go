// Package engine is the combat runtime: the Battle instance built per
// action, the effect opcode registry, the status engine, and the monster
// AI. Everything here is in-memory and deterministic under a fixed RNG
// seed; persistence stays on the other side of the session store boundary.
package engine

import (
	"errors"
	"fmt"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// Combat-rule violations surfaced by battle preconditions. The service
// layer maps these onto its error taxonomy with errors.Is.
var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrSpellOnCooldown  = errors.New("spell is on cooldown")
	ErrNotEnoughEcho    = errors.New("not enough Echo")
	ErrNoConsumableUses = errors.New("no consumable uses remaining")
)

// Outcome values returned by CheckVictory.
const (
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
	OutcomeFled    = "fled"
)

// Reward is what a won combat pays out. Loot resolution happens behind the
// service's loot resolver; the engine only rolls XP and gold.
type Reward struct {
	XP   int
	Gold int
}

// basicAttackEffects is the implicit effect list behind a plain attack.
func basicAttackEffects() []content.EffectPayload {
	return []content.EffectPayload{{
		Opcode: "damage",
		Params: map[string]any{
			"formula":     "AD * 1.0",
			"damage_type": "PHYSICAL",
			"can_crit":    true,
			"variance":    0.1,
			"label":       "attack",
		},
	}}
}

// Battle is the runtime combat instance rebuilt from a session for the
// duration of one action. It owns the RNG, the in-flight combat log and the
// LastDamage slot conditional effects read.
type Battle struct {
	Session *combat.Session
	Player  *combat.PlayerEntity
	Monster *combat.MonsterEntity

	statusDefs map[string]*content.StatusDefinition

	Logs       []*combat.LogEntry
	RNG        RNG
	LastDamage *combat.DamageResult
}

// NewBattle assembles a battle around a session and its two entities.
func NewBattle(session *combat.Session, player *combat.PlayerEntity, monster *combat.MonsterEntity, rng RNG) *Battle {
	return &Battle{
		Session:    session,
		Player:     player,
		Monster:    monster,
		statusDefs: make(map[string]*content.StatusDefinition),
		RNG:        rng,
	}
}

// RegisterStatusDefinitions installs the status definition table for this
// battle.
func (b *Battle) RegisterStatusDefinitions(defs []*content.StatusDefinition) {
	for _, def := range defs {
		b.statusDefs[def.Code] = def
	}
}

// StatusDefinition looks up a status definition by code.
func (b *Battle) StatusDefinition(code string) *content.StatusDefinition {
	return b.statusDefs[code]
}

// Logf appends a formatted message to the combat log, bound to the current
// turn and actor.
func (b *Battle) Logf(format string, args ...any) *combat.LogEntry {
	entry := combat.NewLogEntry(
		b.Session.ID,
		b.Session.TurnCount,
		b.Session.CurrentTurnEntity,
		"log",
		fmt.Sprintf(format, args...),
	)
	b.Logs = append(b.Logs, entry)
	return entry
}

// Start moves the session into the first player turn and writes the opening
// log lines.
func (b *Battle) Start() {
	b.Session.Start()
	b.Logf("Combat started! %s vs %s", b.Player.Name, b.Monster.Name)
	b.Logf("Player HP: %d/%d", b.Player.CurrentHP, b.Player.MaxHP)
	b.Logf("Monster HP: %d/%d", b.Monster.CurrentHP, b.Monster.MaxHP)
}

// IsActive reports whether the combat continues.
func (b *Battle) IsActive() bool {
	return b.Session.IsActive() && !b.Player.IsDead() && !b.Monster.IsDead()
}

// CheckVictory resolves terminal conditions. Returns OutcomeVictory,
// OutcomeDefeat, or "" while combat continues. Monster death is checked
// first, so a simultaneous kill counts as a win.
func (b *Battle) CheckVictory() string {
	if b.Session.IsTerminal() {
		switch b.Session.Status {
		case combat.StatusVictory:
			return OutcomeVictory
		case combat.StatusDefeat:
			return OutcomeDefeat
		}
		return ""
	}
	if b.Monster.IsDead() {
		b.Session.EndVictory()
		b.Logf("%s has been defeated!", b.Monster.Name)
		return OutcomeVictory
	}
	if b.Player.IsDead() {
		b.Session.EndDefeat()
		b.Logf("%s has been defeated!", b.Player.Name)
		return OutcomeDefeat
	}
	return ""
}

// PlayerCastSpell validates and executes a spell cast. The Echo economy:
// ultimates pay their Echo cost and earn nothing; skills earn 15; anything
// else non-ultimate earns 5.
func (b *Battle) PlayerCastSpell(spell *content.Spell) error {
	if b.Session.Status != combat.StatusPlayerTurn {
		return ErrNotYourTurn
	}
	if b.Player.IsOnCooldown(spell.ID) {
		return fmt.Errorf("%w: %s (%d turns)", ErrSpellOnCooldown, spell.Name, b.Player.Cooldowns[spell.ID])
	}
	if spell.EchoCost > 0 && b.Player.EchoCurrent < spell.EchoCost {
		return fmt.Errorf("%w: %d/%d", ErrNotEnoughEcho, b.Player.EchoCurrent, spell.EchoCost)
	}

	b.LastDamage = nil
	if spell.EchoCost > 0 {
		b.Player.SpendEcho(spell.EchoCost)
		b.Logf("%s uses %d Echo", b.Player.Name, spell.EchoCost)
	}

	b.Logf("%s casts %s!", b.Player.Name, spell.Name)
	if err := b.RunEffects(b.Player, b.Monster, spell.Effects); err != nil {
		return err
	}

	if spell.CooldownTurns > 0 {
		b.Player.SetCooldown(spell.ID, spell.CooldownTurns)
	}

	if !spell.IsUltimate() {
		gain := 5
		if spell.Type == content.SpellSkill {
			gain += 10
		}
		b.grantEcho(gain)
	}

	b.afterOffense(b.Player, b.Monster)
	return nil
}

// PlayerBasicAttack executes the implicit basic attack and grants 5 Echo.
func (b *Battle) PlayerBasicAttack() error {
	if b.Session.Status != combat.StatusPlayerTurn {
		return ErrNotYourTurn
	}
	b.LastDamage = nil
	b.Logf("%s attacks!", b.Player.Name)
	if err := b.RunEffects(b.Player, b.Monster, basicAttackEffects()); err != nil {
		return err
	}
	b.grantEcho(5)
	b.afterOffense(b.Player, b.Monster)
	return nil
}

// PlayerUseConsumable spends a consumable charge and runs its self-targeted
// effect list.
func (b *Battle) PlayerUseConsumable(effects []content.EffectPayload) error {
	if b.Session.Status != combat.StatusPlayerTurn {
		return ErrNotYourTurn
	}
	if !b.Player.UseConsumable() {
		return ErrNoConsumableUses
	}
	b.Logf("%s uses a consumable!", b.Player.Name)
	return b.RunEffects(b.Player, b.Player, effects)
}

// PlayerEndTurn runs the player's end-of-turn processing and, when combat
// continues, hands the turn to the monster (including its start-of-turn
// ticks).
func (b *Battle) PlayerEndTurn() {
	b.ProcessTurnEnd(b.Player)
	if b.CheckVictory() != "" {
		return
	}
	b.Session.NextTurn()
	b.Logf("--- Monster's Turn (Turn %d) ---", b.Session.TurnCount)
	b.ProcessTurnStart(b.Monster)
	b.CheckVictory()
}

// MonsterTakeTurn lets the AI pick and execute an action, then ends the
// monster's turn. A nil selection falls back to the basic attack.
func (b *Battle) MonsterTakeTurn() error {
	if b.Session.Status != combat.StatusMonsterTurn {
		return nil
	}

	b.LastDamage = nil
	ability := SelectMonsterAction(b, b.Monster, b.Player)
	if ability != nil {
		b.Logf("%s uses %s!", b.Monster.Name, ability.Name)
		if err := b.RunEffects(b.Monster, b.Player, ability.Effects); err != nil {
			return err
		}
		if ability.CooldownTurns > 0 {
			b.Monster.SetCooldown(ability.ID, ability.CooldownTurns)
		}
	} else {
		b.Logf("%s attacks!", b.Monster.Name)
		effects := basicAttackEffects()
		// Monsters do not roll variance or crit on the fallback attack.
		effects[0].Params = map[string]any{
			"formula":     "AD * 1.0",
			"damage_type": "PHYSICAL",
			"label":       "attack",
		}
		if err := b.RunEffects(b.Monster, b.Player, effects); err != nil {
			return err
		}
	}
	b.afterOffense(b.Monster, b.Player)

	if b.CheckVictory() != "" {
		return nil
	}
	b.MonsterEndTurn()
	return nil
}

// MonsterEndTurn mirrors PlayerEndTurn for the monster side.
func (b *Battle) MonsterEndTurn() {
	b.ProcessTurnEnd(b.Monster)
	if b.CheckVictory() != "" {
		return
	}
	b.Session.NextTurn()
	b.Logf("--- Player's Turn (Turn %d) ---", b.Session.TurnCount)
	b.ProcessTurnStart(b.Player)
	b.CheckVictory()
}

// PlayerFlee rolls the escape attempt: 50% base, shifted one point per
// point of speed difference, clamped to [10%, 90%]. A failed attempt
// consumes the player's turn.
func (b *Battle) PlayerFlee() (bool, error) {
	if b.Session.Status != combat.StatusPlayerTurn {
		return false, ErrNotYourTurn
	}

	speedDiff := b.Player.EffectiveStats().Speed - b.Monster.EffectiveStats().Speed
	fleeChance := 0.5 + float64(speedDiff)*0.01
	if fleeChance < 0.1 {
		fleeChance = 0.1
	}
	if fleeChance > 0.9 {
		fleeChance = 0.9
	}

	if b.RNG.Float64() < fleeChance {
		b.Session.Abandon()
		b.Logf("%s fled from combat!", b.Player.Name)
		return true, nil
	}

	b.Logf("%s failed to flee!", b.Player.Name)
	b.PlayerEndTurn()
	return false, nil
}

// CalculateRewards rolls XP and gold for a won combat. Returns a zero
// reward for any non-victory state.
func (b *Battle) CalculateRewards() Reward {
	if b.Session.Status != combat.StatusVictory {
		return Reward{}
	}
	gold := b.Monster.GoldRewardMin
	if spread := b.Monster.GoldRewardMax - b.Monster.GoldRewardMin; spread > 0 {
		gold += b.RNG.Intn(spread + 1)
	}
	return Reward{XP: b.Monster.XPReward, Gold: gold}
}

// SyncToSession writes the runtime entity state back into the session
// snapshots for persistence.
func (b *Battle) SyncToSession() {
	s := b.Session

	s.PlayerCurrentHP = b.Player.CurrentHP
	s.PlayerMaxHP = b.Player.MaxHP
	s.PlayerEchoCurrent = b.Player.EchoCurrent
	s.PlayerEchoMax = b.Player.EchoMax
	s.PlayerStatuses = combat.SnapshotStatuses(&b.Player.Entity)
	s.PlayerGauges = combat.CopyGauges(b.Player.Gauges)
	s.PlayerCooldowns = combat.CopyCooldowns(b.Player.Cooldowns)
	s.ConsumableUses = b.Player.ConsumableUses

	s.MonsterCurrentHP = b.Monster.CurrentHP
	s.MonsterMaxHP = b.Monster.MaxHP
	s.MonsterStatuses = combat.SnapshotStatuses(&b.Monster.Entity)
	s.MonsterGauges = combat.CopyGauges(b.Monster.Gauges)
	s.MonsterCooldowns = combat.CopyCooldowns(b.Monster.Cooldowns)
}

// grantEcho adds Echo to the player with a log line.
func (b *Battle) grantEcho(amount int) {
	added := b.Player.AddEcho(amount)
	if added > 0 {
		b.Logf("%s gains %d Echo (total: %d)", b.Player.Name, added, b.Player.EchoCurrent)
	}
}

// afterOffense drives the optional on-hit / on-damaged status hooks once
// per action when damage actually landed.
func (b *Battle) afterOffense(attacker, defender combat.Actor) {
	if b.LastDamage == nil || b.LastDamage.Final <= 0 {
		return
	}
	b.ProcessOnHit(attacker, defender)
	b.ProcessOnDamaged(defender, attacker)
}
