package battle

import (
	"fmt"
	"math"
	"strings"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

// DamageOptions tunes one pass through the damage pipeline.
type DamageOptions struct {
	IgnoreDefense bool    // skip the defense roll and the defend bonus
	AllowFloor    bool    // keep a player at 1 hp or more
	DefenseMult   float64 // 0 means 1
	DefenseBonus  int     // flat soak applied even when defense is ignored
}

// DamageResult reports what one hit did.
type DamageResult struct {
	Dealt     int    `json:"dealt"`
	Mitigated int    `json:"mitigated"`
	Absorbed  int    `json:"absorbed"`
	Breakdown string `json:"breakdown"`
}

// applyDamage runs raw damage through shields, flat bonus, defense and the
// defend bonus, then commits it to hp.
func (e *Encounter) applyDamage(target Combatant, raw int, opt DamageOptions) DamageResult {
	u := target.unit()
	if m, ok := target.(*Monster); ok && !m.Alive {
		return DamageResult{}
	}
	dmg := max(0, raw)
	before := u.HP
	var parts []string

	// ① shields, nearest expiry first
	dmg, absorbed := u.Shields.Absorb(dmg)
	if absorbed > 0 {
		parts = append(parts, fmt.Sprintf("shield %d", absorbed))
	}

	// ② flat redirect bonus
	mitigated := 0
	if opt.DefenseBonus > 0 {
		b := min(opt.DefenseBonus, dmg)
		mitigated += b
		dmg -= b
		parts = append(parts, fmt.Sprintf("guard bonus %d", b))
	}

	// ③ defense roll and defend bonus
	if !opt.IgnoreDefense {
		def := EffectiveStat(target, skill.StatDef)
		mult := opt.DefenseMult
		if mult == 0 {
			mult = 1
		}
		sides := 2
		if target.IsMonster() {
			sides = 5
		}
		roll := dice.Roll(e.src, sides)
		mit := int(math.Floor(float64(def) * mult * float64(roll)))
		use := min(mit, dmg)
		mitigated += use
		dmg -= use
		if mult != 1 {
			parts = append(parts, fmt.Sprintf("def %d x %.2f x %d(1d%d) = %d", def, mult, roll, sides, mit))
		} else {
			parts = append(parts, fmt.Sprintf("def %d x %d(1d%d) = %d", def, roll, sides, mit))
		}
		if p, ok := target.(*Player); ok && p.DefendBonus > 0 {
			extra := min(p.DefendBonus, dmg)
			mitigated += extra
			dmg -= extra
			parts = append(parts, fmt.Sprintf("defend %d", extra))
		}
	}

	// ④ commit
	u.HP = max(0, u.HP-dmg)
	switch x := target.(type) {
	case *Player:
		if (x.MinHPFloor || opt.AllowFloor) && u.HP < 1 {
			u.HP = 1
		}
	case *Monster:
		if u.HP <= 0 {
			x.Alive = false
		}
	}

	return DamageResult{
		Dealt:     before - u.HP,
		Mitigated: mitigated,
		Absorbed:  absorbed,
		Breakdown: strings.Join(parts, ", "),
	}
}

// heal raises hp by amount, capped at max, and returns the actual change.
func (e *Encounter) heal(target Combatant, amount int) int {
	u := target.unit()
	before := u.HP
	u.HP = min(u.MaxHP, u.HP+max(0, amount))
	return u.HP - before
}

// describe formats a hit for the log.
func describe(raw int, r DamageResult) string {
	if r.Breakdown == "" {
		return fmt.Sprintf("raw %d -> %d dmg", raw, r.Dealt)
	}
	return fmt.Sprintf("raw %d (%s) -> %d dmg", raw, r.Breakdown, r.Dealt)
}
