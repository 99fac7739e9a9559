package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/formula"
)

// Catalog is the full set of static content the engine runs on. It is
// loaded once at startup and treated as read-only afterwards.
type Catalog struct {
	Monsters   map[string]*MonsterBlueprint
	Items      map[string]*ItemBlueprint
	StatusDefs map[string]*StatusDefinition
}

// catalog file names expected under the content directory.
const (
	monstersFile = "monsters.json"
	itemsFile    = "items.json"
	statusesFile = "statuses.json"
)

// LoadCatalog reads and validates the three catalog files from dir.
// Formulas embedded in effects are parsed eagerly so invalid content is
// rejected before any combat starts.
func LoadCatalog(dir string) (*Catalog, error) {
	logrus.WithFields(logrus.Fields{
		"dir": dir,
	}).Info("Loading content catalog")

	catalog := &Catalog{
		Monsters:   make(map[string]*MonsterBlueprint),
		Items:      make(map[string]*ItemBlueprint),
		StatusDefs: make(map[string]*StatusDefinition),
	}

	var monsters []*MonsterBlueprint
	if err := loadJSON(filepath.Join(dir, monstersFile), &monsters); err != nil {
		return nil, err
	}
	for _, bp := range monsters {
		if err := validateMonster(bp); err != nil {
			return nil, err
		}
		catalog.Monsters[bp.ID.String()] = bp
	}

	var items []*ItemBlueprint
	if err := loadJSON(filepath.Join(dir, itemsFile), &items); err != nil {
		return nil, err
	}
	for _, bp := range items {
		if err := validateItem(bp); err != nil {
			return nil, err
		}
		catalog.Items[bp.ID.String()] = bp
	}

	var statuses []*StatusDefinition
	if err := loadJSON(filepath.Join(dir, statusesFile), &statuses); err != nil {
		return nil, err
	}
	for _, def := range statuses {
		if err := validateStatusDefinition(def); err != nil {
			return nil, err
		}
		catalog.StatusDefs[def.Code] = def
	}

	logrus.WithFields(logrus.Fields{
		"monsters": len(catalog.Monsters),
		"items":    len(catalog.Items),
		"statuses": len(catalog.StatusDefs),
	}).Info("Content catalog loaded")

	return catalog, nil
}

func loadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read content file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse content file %s: %w", path, err)
	}
	return nil
}

func validateMonster(bp *MonsterBlueprint) error {
	if bp.Name == "" {
		return fmt.Errorf("monster %s: missing name", bp.ID)
	}
	if bp.GoldRewardMin > bp.GoldRewardMax {
		return fmt.Errorf("monster %s: gold_reward_min exceeds gold_reward_max", bp.Name)
	}
	switch bp.Behavior {
	case BehaviorBasic, BehaviorAggressive, BehaviorDefensive, BehaviorHealer, BehaviorBalanced, BehaviorBoss:
	case "":
		bp.Behavior = BehaviorBasic
	default:
		return fmt.Errorf("monster %s: unknown ai_behavior %q", bp.Name, bp.Behavior)
	}
	for _, ability := range bp.Abilities {
		if ability.Priority < 1 {
			ability.Priority = 1
		}
		if ability.ConditionExpr != "" {
			if _, err := formula.Parse(ability.ConditionExpr); err != nil {
				return fmt.Errorf("monster %s ability %s: %w", bp.Name, ability.Name, err)
			}
		}
		if err := validateEffects(fmt.Sprintf("monster %s ability %s", bp.Name, ability.Name), ability.Effects); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(bp *ItemBlueprint) error {
	if bp.Name == "" {
		return fmt.Errorf("item %s: missing name", bp.ID)
	}
	for _, spell := range bp.Spells {
		switch spell.Type {
		case SpellBasic, SpellSkill, SpellUltimate:
		default:
			return fmt.Errorf("item %s spell %s: unknown spell_type %q", bp.Name, spell.Name, spell.Type)
		}
		if err := validateEffects(fmt.Sprintf("item %s spell %s", bp.Name, spell.Name), spell.Effects); err != nil {
			return err
		}
	}
	if len(bp.ConsumableEffects) > 0 {
		if err := validateEffects(fmt.Sprintf("item %s consumable", bp.Name), bp.ConsumableEffects); err != nil {
			return err
		}
	}
	return nil
}

func validateStatusDefinition(def *StatusDefinition) error {
	if def.Code == "" {
		return fmt.Errorf("status definition missing code")
	}
	if def.MaxStacks < 1 {
		def.MaxStacks = 1
	}
	switch def.TickTrigger {
	case TickOnTurnStart, TickOnTurnEnd, TickOnHit, TickOnDamaged, TickImmediate:
	case "":
		def.TickTrigger = TickOnTurnEnd
	default:
		return fmt.Errorf("status %s: unknown tick_trigger %q", def.Code, def.TickTrigger)
	}
	if def.TickEffect != nil {
		if err := validateEffects(fmt.Sprintf("status %s tick", def.Code), []EffectPayload{*def.TickEffect}); err != nil {
			return err
		}
	}
	return nil
}
