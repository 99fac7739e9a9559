package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/combat"
	"github.com/echoesrpg/echoes-server/lib/content"
)

// PostgresStore is the production Store. Session snapshots live in primitive
// columns plus JSONB maps; blueprints and status definitions are served from
// the in-process catalog, which mirrors the seeded content tables.
type PostgresStore struct {
	db      *sqlx.DB
	catalog *content.Catalog
}

// NewPostgresStore connects and verifies the database.
func NewPostgresStore(dsn string, catalog *content.Catalog) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logrus.Info("Connected to postgres session store")
	return &PostgresStore{db: db, catalog: catalog}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error { return p.db.Close() }

// sessionRow maps the combat_sessions table.
type sessionRow struct {
	ID                 uuid.UUID  `db:"id"`
	PlayerID           uuid.UUID  `db:"player_id"`
	MonsterBlueprintID uuid.UUID  `db:"monster_blueprint_id"`
	MonsterLevel       int        `db:"monster_level"`
	Status             string     `db:"status"`
	TurnCount          int        `db:"turn_count"`
	CurrentTurnEntity  string     `db:"current_turn_entity"`
	Version            int64      `db:"version"`
	PlayerCurrentHP    int        `db:"player_current_hp"`
	PlayerMaxHP        int        `db:"player_max_hp"`
	PlayerEchoCurrent  int        `db:"player_echo_current"`
	PlayerEchoMax      int        `db:"player_echo_max"`
	PlayerStatuses     []byte     `db:"player_statuses"`
	PlayerGauges       []byte     `db:"player_gauges"`
	PlayerCooldowns    []byte     `db:"player_cooldowns"`
	ConsumableUses     int        `db:"consumable_uses"`
	MonsterCurrentHP   int        `db:"monster_current_hp"`
	MonsterMaxHP       int        `db:"monster_max_hp"`
	MonsterStatuses    []byte     `db:"monster_statuses"`
	MonsterGauges      []byte     `db:"monster_gauges"`
	MonsterCooldowns   []byte     `db:"monster_cooldowns"`
	StartedAt          time.Time  `db:"started_at"`
	EndedAt            *time.Time `db:"ended_at"`
}

const sessionColumns = `id, player_id, monster_blueprint_id, monster_level, status, turn_count,
	current_turn_entity, version, player_current_hp, player_max_hp, player_echo_current,
	player_echo_max, player_statuses, player_gauges, player_cooldowns, consumable_uses,
	monster_current_hp, monster_max_hp, monster_statuses, monster_gauges, monster_cooldowns,
	started_at, ended_at`

func encodeSession(s *combat.Session) (*sessionRow, error) {
	playerStatuses, err := json.Marshal(s.PlayerStatuses)
	if err != nil {
		return nil, fmt.Errorf("encode player statuses: %w", err)
	}
	monsterStatuses, err := json.Marshal(s.MonsterStatuses)
	if err != nil {
		return nil, fmt.Errorf("encode monster statuses: %w", err)
	}
	playerGauges, err := json.Marshal(combat.CopyGauges(s.PlayerGauges))
	if err != nil {
		return nil, fmt.Errorf("encode player gauges: %w", err)
	}
	monsterGauges, err := json.Marshal(combat.CopyGauges(s.MonsterGauges))
	if err != nil {
		return nil, fmt.Errorf("encode monster gauges: %w", err)
	}
	playerCooldowns, err := json.Marshal(combat.CopyCooldowns(s.PlayerCooldowns))
	if err != nil {
		return nil, fmt.Errorf("encode player cooldowns: %w", err)
	}
	monsterCooldowns, err := json.Marshal(combat.CopyCooldowns(s.MonsterCooldowns))
	if err != nil {
		return nil, fmt.Errorf("encode monster cooldowns: %w", err)
	}
	return &sessionRow{
		ID:                 s.ID,
		PlayerID:           s.PlayerID,
		MonsterBlueprintID: s.MonsterBlueprintID,
		MonsterLevel:       s.MonsterLevel,
		Status:             string(s.Status),
		TurnCount:          s.TurnCount,
		CurrentTurnEntity:  s.CurrentTurnEntity,
		Version:            s.Version,
		PlayerCurrentHP:    s.PlayerCurrentHP,
		PlayerMaxHP:        s.PlayerMaxHP,
		PlayerEchoCurrent:  s.PlayerEchoCurrent,
		PlayerEchoMax:      s.PlayerEchoMax,
		PlayerStatuses:     playerStatuses,
		PlayerGauges:       playerGauges,
		PlayerCooldowns:    playerCooldowns,
		ConsumableUses:     s.ConsumableUses,
		MonsterCurrentHP:   s.MonsterCurrentHP,
		MonsterMaxHP:       s.MonsterMaxHP,
		MonsterStatuses:    monsterStatuses,
		MonsterGauges:      monsterGauges,
		MonsterCooldowns:   monsterCooldowns,
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
	}, nil
}

func decodeSession(row *sessionRow) (*combat.Session, error) {
	session := &combat.Session{
		ID:                 row.ID,
		PlayerID:           row.PlayerID,
		MonsterBlueprintID: row.MonsterBlueprintID,
		MonsterLevel:       row.MonsterLevel,
		Status:             combat.Status(row.Status),
		TurnCount:          row.TurnCount,
		CurrentTurnEntity:  row.CurrentTurnEntity,
		Version:            row.Version,
		PlayerCurrentHP:    row.PlayerCurrentHP,
		PlayerMaxHP:        row.PlayerMaxHP,
		PlayerEchoCurrent:  row.PlayerEchoCurrent,
		PlayerEchoMax:      row.PlayerEchoMax,
		ConsumableUses:     row.ConsumableUses,
		MonsterCurrentHP:   row.MonsterCurrentHP,
		MonsterMaxHP:       row.MonsterMaxHP,
		StartedAt:          row.StartedAt,
		EndedAt:            row.EndedAt,
	}
	if err := json.Unmarshal(row.PlayerStatuses, &session.PlayerStatuses); err != nil {
		return nil, fmt.Errorf("decode player statuses: %w", err)
	}
	if err := json.Unmarshal(row.MonsterStatuses, &session.MonsterStatuses); err != nil {
		return nil, fmt.Errorf("decode monster statuses: %w", err)
	}
	if err := json.Unmarshal(row.PlayerGauges, &session.PlayerGauges); err != nil {
		return nil, fmt.Errorf("decode player gauges: %w", err)
	}
	if err := json.Unmarshal(row.MonsterGauges, &session.MonsterGauges); err != nil {
		return nil, fmt.Errorf("decode monster gauges: %w", err)
	}
	if err := json.Unmarshal(row.PlayerCooldowns, &session.PlayerCooldowns); err != nil {
		return nil, fmt.Errorf("decode player cooldowns: %w", err)
	}
	if err := json.Unmarshal(row.MonsterCooldowns, &session.MonsterCooldowns); err != nil {
		return nil, fmt.Errorf("decode monster cooldowns: %w", err)
	}
	return session, nil
}

func (p *PostgresStore) LoadSession(ctx context.Context, id uuid.UUID) (*combat.Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row,
		`SELECT `+sessionColumns+` FROM combat_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(&row)
}

func (p *PostgresStore) ActiveSessionForPlayer(ctx context.Context, playerID uuid.UUID) (*combat.Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row,
		`SELECT `+sessionColumns+` FROM combat_sessions
		 WHERE player_id = $1 AND status IN ('PENDING', 'PLAYER_TURN', 'MONSTER_TURN')
		 ORDER BY started_at DESC LIMIT 1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return decodeSession(&row)
}

func (p *PostgresStore) CreateSession(ctx context.Context, session *combat.Session) error {
	row, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = p.db.NamedExecContext(ctx,
		`INSERT INTO combat_sessions (`+sessionColumns+`) VALUES (
			:id, :player_id, :monster_blueprint_id, :monster_level, :status, :turn_count,
			:current_turn_entity, :version, :player_current_hp, :player_max_hp, :player_echo_current,
			:player_echo_max, :player_statuses, :player_gauges, :player_cooldowns, :consumable_uses,
			:monster_current_hp, :monster_max_hp, :monster_statuses, :monster_gauges, :monster_cooldowns,
			:started_at, :ended_at)`, row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("session %s already exists: %w", session.ID, err)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (p *PostgresStore) PersistSession(ctx context.Context, session *combat.Session) error {
	row, err := encodeSession(session)
	if err != nil {
		return err
	}
	result, err := p.db.NamedExecContext(ctx,
		`UPDATE combat_sessions SET
			status = :status, turn_count = :turn_count, current_turn_entity = :current_turn_entity,
			version = :version + 1,
			player_current_hp = :player_current_hp, player_max_hp = :player_max_hp,
			player_echo_current = :player_echo_current, player_echo_max = :player_echo_max,
			player_statuses = :player_statuses, player_gauges = :player_gauges,
			player_cooldowns = :player_cooldowns, consumable_uses = :consumable_uses,
			monster_current_hp = :monster_current_hp, monster_max_hp = :monster_max_hp,
			monster_statuses = :monster_statuses, monster_gauges = :monster_gauges,
			monster_cooldowns = :monster_cooldowns, ended_at = :ended_at
		 WHERE id = :id AND version = :version`, row)
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	session.Version++
	return nil
}

func (p *PostgresStore) AppendLogs(ctx context.Context, entries []*combat.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append logs: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("combat_logs",
		"id", "session_id", "turn", "actor", "action_type", "spell_id",
		"damage", "damage_type", "was_critical", "echo_gained", "message", "created_at"))
	if err != nil {
		return fmt.Errorf("append logs: %w", err)
	}
	for _, e := range entries {
		var damageType *string
		if e.DamageType != nil {
			s := string(*e.DamageType)
			damageType = &s
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.SessionID, e.Turn, e.Actor, e.ActionType,
			e.SpellID, e.Damage, damageType, e.WasCrit, e.EchoGained, e.Message, e.CreatedAt); err != nil {
			stmt.Close()
			return fmt.Errorf("append logs: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("append logs: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("append logs: %w", err)
	}
	return tx.Commit()
}

func (p *PostgresStore) AllStatusDefinitions(ctx context.Context) ([]*content.StatusDefinition, error) {
	defs := make([]*content.StatusDefinition, 0, len(p.catalog.StatusDefs))
	for _, def := range p.catalog.StatusDefs {
		defs = append(defs, def)
	}
	return defs, nil
}

func (p *PostgresStore) MonsterBlueprint(ctx context.Context, id uuid.UUID) (*content.MonsterBlueprint, error) {
	bp, ok := p.catalog.Monsters[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return bp, nil
}

func (p *PostgresStore) Player(ctx context.Context, id uuid.UUID) (*PlayerRecord, error) {
	var record PlayerRecord
	err := p.db.GetContext(ctx, &record,
		`SELECT id, username, level, xp, gold, echo_max, consumable_uses
		 FROM players WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	return &record, nil
}

// equippedRow maps the player_items join used for stat computation.
type equippedRow struct {
	BlueprintID uuid.UUID `db:"item_blueprint_id"`
	ItemLevel   int       `db:"item_level"`
}

func (p *PostgresStore) EquippedItems(ctx context.Context, playerID uuid.UUID) ([]*EquippedItem, error) {
	var rows []equippedRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT item_blueprint_id, item_level FROM player_items
		 WHERE player_id = $1 AND is_equipped`, playerID)
	if err != nil {
		return nil, fmt.Errorf("equipped items: %w", err)
	}
	items := make([]*EquippedItem, 0, len(rows))
	for _, row := range rows {
		bp, ok := p.catalog.Items[row.BlueprintID.String()]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"player":    playerID,
				"blueprint": row.BlueprintID,
			}).Warn("Equipped item blueprint missing from catalog, skipping")
			continue
		}
		items = append(items, &EquippedItem{Blueprint: bp, ItemLevel: row.ItemLevel})
	}
	return items, nil
}

func (p *PostgresStore) AddXP(ctx context.Context, playerID uuid.UUID, xp int) (int, int, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("add xp: %w", err)
	}
	defer tx.Rollback()

	var record PlayerRecord
	err = tx.GetContext(ctx, &record,
		`SELECT id, username, level, xp, gold, echo_max, consumable_uses
		 FROM players WHERE id = $1 FOR UPDATE`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("add xp: %w", err)
	}

	gained := applyXP(&record, xp)
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET level = $1, xp = $2 WHERE id = $3`,
		record.Level, record.XP, playerID); err != nil {
		return 0, 0, fmt.Errorf("add xp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("add xp: %w", err)
	}
	return record.Level, gained, nil
}

func (p *PostgresStore) AddGold(ctx context.Context, playerID uuid.UUID, gold int) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE players SET gold = gold + $1 WHERE id = $2`, gold, playerID)
	if err != nil {
		return fmt.Errorf("add gold: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add gold: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
