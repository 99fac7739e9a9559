// Package service is the combat orchestrator: the public operations the
// transport layer calls. Each operation is one logical transaction against
// the session store — load the session, rebuild the battle, run the action
// to completion, write the state back. Mutations to a single session are
// serialized by a per-session mutex and an optimistic version check on
// write-back.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/engine"
	"github.com/echoesrpg/echoes-server/lib/stats"
	"github.com/echoesrpg/echoes-server/lib/store"
)

// CombatService drives combat sessions end to end.
type CombatService struct {
	store    store.Store
	loot     LootResolver
	notifier *Notifier

	// seedFn produces the RNG seed for a new battle; injectable for
	// deterministic tests.
	seedFn func() int64

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// Option configures a CombatService.
type Option func(*CombatService)

// WithLootResolver installs a loot table resolver.
func WithLootResolver(resolver LootResolver) Option {
	return func(s *CombatService) { s.loot = resolver }
}

// WithSeed pins the battle RNG seed, for reproducible tests.
func WithSeed(seed int64) Option {
	return func(s *CombatService) { s.seedFn = func() int64 { return seed } }
}

// New creates a combat service over a session store.
func New(st store.Store, opts ...Option) *CombatService {
	s := &CombatService{
		store:    st,
		loot:     NoLoot{},
		notifier: NewNotifier(),
		seedFn:   func() int64 { return time.Now().UnixNano() },
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifier exposes the live combat-log feed for the watch endpoint.
func (s *CombatService) Notifier() *Notifier { return s.notifier }

// sessionLock returns the mutex serializing one session's actions within
// this process. Cross-process races are caught by the version check.
func (s *CombatService) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if _, ok := s.locks[sessionID]; !ok {
		s.locks[sessionID] = &sync.Mutex{}
	}
	return s.locks[sessionID]
}

// releaseLock drops the mutex of a finished session.
func (s *CombatService) releaseLock(sessionID uuid.UUID) {
	s.locksMu.Lock()
	delete(s.locks, sessionID)
	s.locksMu.Unlock()
}

// playerBaseStats derives the player's unequipped stat line from level.
func playerBaseStats(level int) stats.Block {
	return stats.Block{
		MaxHP:      100 + level*10,
		AD:         10 + level*2,
		AP:         10 + level*2,
		Armor:      5 + level,
		MR:         5 + level,
		Speed:      10,
		CritChance: 0.05,
		CritDamage: 1.5,
	}
}

// playerLoadout computes the player's final stats, spell list and
// consumable effects from level and equipped items.
func (s *CombatService) playerLoadout(ctx context.Context, player *store.PlayerRecord) (stats.Block, []*content.Spell, []content.EffectPayload, error) {
	block := playerBaseStats(player.Level)

	items, err := s.store.EquippedItems(ctx, player.ID)
	if err != nil {
		return stats.Block{}, nil, nil, fmt.Errorf("load equipment: %w", err)
	}

	var spells []*content.Spell
	var consumable []content.EffectPayload
	for _, item := range items {
		block = block.Add(item.Blueprint.StatsAtLevel(item.ItemLevel))
		spells = append(spells, item.Blueprint.Spells...)
		if len(item.Blueprint.ConsumableEffects) > 0 && consumable == nil {
			consumable = item.Blueprint.ConsumableEffects
		}
	}
	return block, spells, consumable, nil
}

// buildBattle reconstructs the runtime battle from a session snapshot.
func (s *CombatService) buildBattle(ctx context.Context, session *combat.Session) (*engine.Battle, error) {
	player, err := s.store.Player(ctx, session.PlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: player %s", ErrEntityNotFound, session.PlayerID)
		}
		return nil, err
	}

	monsterBP, err := s.store.MonsterBlueprint(ctx, session.MonsterBlueprintID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: monster blueprint %s", ErrEntityNotFound, session.MonsterBlueprintID)
		}
		return nil, err
	}

	block, spells, _, err := s.playerLoadout(ctx, player)
	if err != nil {
		return nil, err
	}

	playerEntity := combat.NewPlayerEntity(player.ID, player.Username, block, session.PlayerEchoMax)
	playerEntity.CurrentHP = session.PlayerCurrentHP
	playerEntity.MaxHP = session.PlayerMaxHP
	playerEntity.EchoCurrent = session.PlayerEchoCurrent
	playerEntity.AvailableSpells = spells
	playerEntity.ConsumableUses = session.ConsumableUses
	playerEntity.Gauges = combat.CopyGauges(session.PlayerGauges)
	playerEntity.Cooldowns = combat.CopyCooldowns(session.PlayerCooldowns)
	combat.RestoreStatuses(&playerEntity.Entity, session.PlayerStatuses)

	monsterEntity := combat.MonsterFromSnapshot(monsterBP, session.MonsterLevel, session.MonsterCurrentHP, session.MonsterMaxHP)
	monsterEntity.Gauges = combat.CopyGauges(session.MonsterGauges)
	monsterEntity.Cooldowns = combat.CopyCooldowns(session.MonsterCooldowns)
	combat.RestoreStatuses(&monsterEntity.Entity, session.MonsterStatuses)

	battle := engine.NewBattle(session, playerEntity, monsterEntity, engine.NewRNG(s.seedFn()))

	defs, err := s.store.AllStatusDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load status definitions: %w", err)
	}
	battle.RegisterStatusDefinitions(defs)

	return battle, nil
}

// StartCombat opens a new session against a monster blueprint. Rejected when
// the player already has an active session.
func (s *CombatService) StartCombat(ctx context.Context, playerID, monsterBPID uuid.UUID, monsterLevel *int) (*CombatResult, error) {
	if _, err := s.store.ActiveSessionForPlayer(ctx, playerID); err == nil {
		return nil, ErrAlreadyInCombat
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	player, err := s.store.Player(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: player %s", ErrEntityNotFound, playerID)
		}
		return nil, err
	}

	monsterBP, err := s.store.MonsterBlueprint(ctx, monsterBPID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: monster blueprint %s", ErrEntityNotFound, monsterBPID)
		}
		return nil, err
	}

	level := monsterBP.BaseLevel
	if monsterLevel != nil {
		level = *monsterLevel
	}

	block, _, _, err := s.playerLoadout(ctx, player)
	if err != nil {
		return nil, err
	}
	monsterStats := monsterBP.StatsAtLevel(level)

	session := combat.NewSession(playerID, monsterBPID, level,
		block.MaxHP, player.EchoMax, monsterStats.MaxHP, player.ConsumableUses)

	battle, err := s.buildBattleFromParts(ctx, session, player, monsterBP)
	if err != nil {
		return nil, err
	}
	battle.Start()
	battle.SyncToSession()

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.flushLogs(ctx, battle)

	logrus.WithFields(logrus.Fields{
		"session": session.ID,
		"player":  playerID,
		"monster": monsterBP.Name,
		"level":   level,
	}).Info("Combat started")

	return &CombatResult{
		Success: true,
		Message: fmt.Sprintf("Combat started! vs %s (Lv.%d)", monsterBP.Name, level),
		State:   stateFromBattle(battle),
	}, nil
}

// buildBattleFromParts assembles a battle when the pieces are already
// loaded (session creation path).
func (s *CombatService) buildBattleFromParts(ctx context.Context, session *combat.Session, player *store.PlayerRecord, monsterBP *content.MonsterBlueprint) (*engine.Battle, error) {
	block, spells, _, err := s.playerLoadout(ctx, player)
	if err != nil {
		return nil, err
	}

	playerEntity := combat.NewPlayerEntity(player.ID, player.Username, block, session.PlayerEchoMax)
	playerEntity.AvailableSpells = spells
	playerEntity.ConsumableUses = session.ConsumableUses

	monsterEntity := combat.NewMonsterEntity(monsterBP, session.MonsterLevel)

	battle := engine.NewBattle(session, playerEntity, monsterEntity, engine.NewRNG(s.seedFn()))

	defs, err := s.store.AllStatusDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load status definitions: %w", err)
	}
	battle.RegisterStatusDefinitions(defs)
	return battle, nil
}

// CurrentState returns the active session's state payload.
func (s *CombatService) CurrentState(ctx context.Context, playerID uuid.UUID) (*CombatState, error) {
	session, err := s.store.ActiveSessionForPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active session", ErrEntityNotFound)
		}
		return nil, err
	}
	battle, err := s.buildBattle(ctx, session)
	if err != nil {
		return nil, err
	}
	return stateFromBattle(battle), nil
}

// ExecuteAction runs one player action and, when combat continues, the
// monster's reply. Preconditions fail without touching persisted state.
func (s *CombatService) ExecuteAction(ctx context.Context, playerID uuid.UUID, input ActionInput) (*CombatResult, error) {
	session, err := s.store.ActiveSessionForPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active session", ErrEntityNotFound)
		}
		return nil, err
	}
	if session.PlayerID != playerID {
		return nil, ErrNotSessionOwner
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.Status != combat.StatusPlayerTurn {
		return nil, engine.ErrNotYourTurn
	}

	battle, err := s.buildBattle(ctx, session)
	if err != nil {
		return nil, err
	}

	message, err := s.runPlayerAction(ctx, battle, playerID, input)
	if err != nil {
		return nil, err
	}

	if battle.CheckVictory() == "" {
		battle.PlayerEndTurn()
		if battle.Session.Status == combat.StatusMonsterTurn {
			if err := battle.MonsterTakeTurn(); err != nil {
				return nil, fmt.Errorf("monster turn: %w", err)
			}
		}
	}

	return s.finishAction(ctx, battle, message)
}

// runPlayerAction dispatches the requested action against the battle.
func (s *CombatService) runPlayerAction(ctx context.Context, battle *engine.Battle, playerID uuid.UUID, input ActionInput) (string, error) {
	switch input.ActionType {
	case ActionBasicAttack:
		return "Attack!", battle.PlayerBasicAttack()

	case ActionSpell:
		if input.SpellID == nil {
			return "", ErrSpellRequired
		}
		spell := battle.Player.FindSpell(*input.SpellID)
		if spell == nil {
			return "", ErrSpellNotAvailable
		}
		return spell.Name, battle.PlayerCastSpell(spell)

	case ActionConsumable:
		player, err := s.store.Player(ctx, playerID)
		if err != nil {
			return "", err
		}
		_, _, consumable, err := s.playerLoadout(ctx, player)
		if err != nil {
			return "", err
		}
		if consumable == nil {
			return "", ErrNoConsumableEquipped
		}
		return "Consumable", battle.PlayerUseConsumable(consumable)

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, input.ActionType)
	}
}

// Flee attempts to escape the active combat. A failed attempt consumes the
// turn and the monster acts.
func (s *CombatService) Flee(ctx context.Context, playerID uuid.UUID) (*CombatResult, error) {
	session, err := s.store.ActiveSessionForPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active session", ErrEntityNotFound)
		}
		return nil, err
	}
	if session.PlayerID != playerID {
		return nil, ErrNotSessionOwner
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	battle, err := s.buildBattle(ctx, session)
	if err != nil {
		return nil, err
	}

	fled, err := battle.PlayerFlee()
	if err != nil {
		return nil, err
	}

	if fled {
		result, err := s.finishAction(ctx, battle, "You escaped from combat!")
		if err != nil {
			return nil, err
		}
		result.Result = engine.OutcomeFled
		result.CombatEnded = true
		return result, nil
	}

	// Failed flee: the monster gets its turn through the normal AI path.
	if battle.Session.Status == combat.StatusMonsterTurn {
		if err := battle.MonsterTakeTurn(); err != nil {
			return nil, fmt.Errorf("monster turn: %w", err)
		}
	}

	result, err := s.finishAction(ctx, battle, "Failed to escape!")
	if err != nil {
		return nil, err
	}
	result.Success = false
	return result, nil
}

// finishAction syncs, persists, flushes logs and assembles the result,
// applying rewards when the combat was won.
func (s *CombatService) finishAction(ctx context.Context, battle *engine.Battle, message string) (*CombatResult, error) {
	battle.SyncToSession()

	if err := s.store.PersistSession(ctx, battle.Session); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.flushLogs(ctx, battle)

	outcome := ""
	switch battle.Session.Status {
	case combat.StatusVictory:
		outcome = engine.OutcomeVictory
	case combat.StatusDefeat:
		outcome = engine.OutcomeDefeat
	case combat.StatusAbandoned:
		outcome = engine.OutcomeFled
	}

	result := &CombatResult{
		Success:     true,
		Message:     message,
		State:       stateFromBattle(battle),
		CombatEnded: outcome != "",
		Result:      outcome,
	}

	if outcome == engine.OutcomeVictory {
		reward, err := s.applyRewards(ctx, battle)
		if err != nil {
			return nil, err
		}
		result.Rewards = reward
	}
	if result.CombatEnded {
		s.releaseLock(battle.Session.ID)
	}
	return result, nil
}

// applyRewards rolls and grants the victory payout.
func (s *CombatService) applyRewards(ctx context.Context, battle *engine.Battle) (*Reward, error) {
	rolled := battle.CalculateRewards()

	_, levelsGained, err := s.store.AddXP(ctx, battle.Session.PlayerID, rolled.XP)
	if err != nil {
		return nil, fmt.Errorf("grant xp: %w", err)
	}
	if err := s.store.AddGold(ctx, battle.Session.PlayerID, rolled.Gold); err != nil {
		return nil, fmt.Errorf("grant gold: %w", err)
	}

	drops, err := s.loot.Resolve(ctx, battle.Monster)
	if err != nil {
		logrus.WithError(err).Warn("Loot resolution failed")
		drops = nil
	}

	logrus.WithFields(logrus.Fields{
		"session": battle.Session.ID,
		"xp":      rolled.XP,
		"gold":    rolled.Gold,
		"levels":  levelsGained,
	}).Info("Combat rewards granted")

	return &Reward{
		XPGained:     rolled.XP,
		GoldGained:   rolled.Gold,
		LevelsGained: levelsGained,
		LootDrops:    drops,
	}, nil
}

// flushLogs persists buffered combat-log entries and feeds live watchers.
// Log persistence is best-effort: a failure is logged, never fatal to the
// action.
func (s *CombatService) flushLogs(ctx context.Context, battle *engine.Battle) {
	if len(battle.Logs) == 0 {
		return
	}
	if err := s.store.AppendLogs(ctx, battle.Logs); err != nil {
		logrus.WithError(err).Warn("Failed to persist combat logs")
	}
	s.notifier.Publish(battle.Session.PlayerID, combat.Messages(battle.Logs))
}
