package combat

// DamageType classifies how damage is mitigated.
type DamageType string

const (
	DamagePhysical DamageType = "PHYSICAL"
	DamageMagic    DamageType = "MAGIC"
	DamageTrue     DamageType = "TRUE"
	DamageMixed    DamageType = "MIXED"
)

// ParseDamageType maps a stored string to a DamageType, falling back to the
// given default for unknown values.
func ParseDamageType(s string, fallback DamageType) DamageType {
	switch DamageType(s) {
	case DamagePhysical, DamageMagic, DamageTrue, DamageMixed:
		return DamageType(s)
	default:
		return fallback
	}
}

// DamageResult describes one resolved application of damage. The caller that
// rolled the crit stamps WasCritical before logging.
type DamageResult struct {
	Raw         int
	Mitigated   int
	Final       int
	Type        DamageType
	WasCritical bool
	Overkill    int
}

// TakeDamage applies typed damage to the entity. Shield absorbs first, then
// armor or magic resist mitigate (rating/(100+rating), never below zero
// effectiveness for negative ratings), then HP is reduced, clamped at zero.
func (e *Entity) TakeDamage(amount int, damageType DamageType) *DamageResult {
	if amount < 0 {
		amount = 0
	}

	if shield := e.Gauges[GaugeShield]; shield > 0 {
		absorbed := shield
		if amount < absorbed {
			absorbed = amount
		}
		e.Gauges[GaugeShield] = shield - absorbed
		amount -= absorbed
	}

	effective := e.EffectiveStats()
	var mitigated int
	switch damageType {
	case DamageTrue:
		mitigated = amount
	case DamagePhysical:
		mitigated = mitigate(amount, effective.Armor)
	case DamageMagic:
		mitigated = mitigate(amount, effective.MR)
	case DamageMixed:
		phys := amount / 2
		magic := amount - phys
		mitigated = mitigate(phys, effective.Armor) + mitigate(magic, effective.MR)
	default:
		mitigated = amount
	}

	actual := mitigated
	if e.CurrentHP < actual {
		actual = e.CurrentHP
	}
	e.CurrentHP -= actual

	return &DamageResult{
		Raw:       amount,
		Mitigated: mitigated,
		Final:     actual,
		Type:      damageType,
		Overkill:  mitigated - actual,
	}
}

// mitigate applies the rating/(100+rating) reduction curve. Negative ratings
// grant no reduction.
func mitigate(amount, rating int) int {
	if rating <= 0 {
		return amount
	}
	reduction := float64(rating) / float64(100+rating)
	return int(float64(amount) * (1 - reduction))
}
