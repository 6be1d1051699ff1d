package battle

import (
	"strings"

	"github.com/kasuganosora/raidtable/game/skill"
)

// Direct overrides for the game master. They skip skill validation but keep
// the hp clamp and the down/alive transitions.

func (e *Encounter) combatant(id string) Combatant {
	if p := e.player(id); p != nil {
		return p
	}
	if m := e.monster(id); m != nil {
		return m
	}
	return nil
}

// SetHP sets an entity's hp, clamped to its max.
func (e *Encounter) SetHP(id string, hp int) bool {
	c := e.combatant(id)
	if c == nil {
		e.warnf("No entity %q.", id)
		return false
	}
	if hp < 0 {
		e.warnf("HP must not be negative (got %d).", hp)
		return false
	}
	u := c.unit()
	u.HP = min(hp, u.MaxHP)
	e.settleOverride(c)
	e.logf(LogGM, "[GM] %s HP set to %d/%d.", u.Name, u.HP, u.MaxHP)
	return true
}

// ToggleDown flips a player between down and active, or a monster between
// dead and alive. Coming back restores half of max hp.
func (e *Encounter) ToggleDown(id string) bool {
	switch x := e.combatant(id).(type) {
	case *Player:
		if x.Down {
			x.Down = false
			x.DownCounter = 0
			x.HP = max(1, floorMul(x.MaxHP, gmReviveHPRate))
			e.logf(LogGM, "[GM] %s is back up with %d HP.", x.Name, x.HP)
		} else {
			x.HP = 0
			e.setDownIfNeeded(x)
			e.logf(LogGM, "[GM] %s knocked down.", x.Name)
		}
	case *Monster:
		if x.Alive {
			x.HP = 0
			x.Alive = false
			e.logf(LogGM, "[GM] %s slain.", x.Name)
		} else {
			x.HP = max(1, floorMul(x.MaxHP, gmReviveHPRate))
			x.Alive = true
			e.logf(LogGM, "[GM] %s rises again with %d HP.", x.Name, x.HP)
		}
	default:
		e.warnf("No entity %q.", id)
		return false
	}
	return true
}

// AdjustTempStat adds delta to an entity's temp stat.
func (e *Encounter) AdjustTempStat(id string, stat skill.Stat, delta int) bool {
	c := e.combatant(id)
	if c == nil {
		e.warnf("No entity %q.", id)
		return false
	}
	st, ok := skill.ParseStat(string(stat))
	if !ok {
		e.warnf("Unknown stat %q.", stat)
		return false
	}
	u := c.unit()
	u.Temp.Add(st, delta)
	e.logf(LogGM, "[GM] %s %s %+d (temp now %d, effective %d).", u.Name, st, delta, u.Temp.Get(st), EffectiveStat(c, st))
	return true
}

// ClearStatus removes every status effect from an entity.
func (e *Encounter) ClearStatus(id string) bool {
	switch x := e.combatant(id).(type) {
	case *Player:
		x.clearCombatState()
		e.logf(LogGM, "[GM] %s's status effects cleared.", x.Name)
	case *Monster:
		x.clearCombatState()
		e.logf(LogGM, "[GM] %s's status effects cleared.", x.Name)
	default:
		e.warnf("No entity %q.", id)
		return false
	}
	return true
}

// ApplySignedDamage deals amount straight to hp when positive and heals
// when negative. Shields and defense are skipped.
func (e *Encounter) ApplySignedDamage(id string, amount int) bool {
	c := e.combatant(id)
	if c == nil {
		e.warnf("No entity %q.", id)
		return false
	}
	if amount == 0 {
		e.warnf("Amount must not be zero.")
		return false
	}
	u := c.unit()
	before := u.HP
	if amount > 0 {
		u.HP = max(0, u.HP-amount)
	} else {
		u.HP = min(u.MaxHP, u.HP-amount)
	}
	e.settleOverride(c)
	e.logf(LogGM, "[GM] %s HP %d -> %d (%+d).", u.Name, before, u.HP, u.HP-before)
	return true
}

// settleOverride applies the down/alive transitions after a direct hp edit.
func (e *Encounter) settleOverride(c Combatant) {
	switch x := c.(type) {
	case *Player:
		if x.HP <= 0 {
			e.setDownIfNeeded(x)
		} else if x.Down {
			x.Down = false
			x.DownCounter = 0
			e.logf(LogGM, "[GM] %s is back up.", x.Name)
		}
	case *Monster:
		if x.HP <= 0 {
			x.Alive = false
		} else if !x.Alive {
			x.Alive = true
			e.logf(LogGM, "[GM] %s rises again.", x.Name)
		}
	}
}

// AddNote writes a GM note to the log.
func (e *Encounter) AddNote(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		e.warnf("Empty note.")
		return false
	}
	e.logf(LogGM, "[GM] %s", text)
	return true
}
