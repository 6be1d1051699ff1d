package battle

import (
	"github.com/kasuganosora/raidtable/game/skill"
)

func (e *Encounter) revive(p *Player, a Action) bool {
	ally := e.allyTarget(p, a.target(0), true)
	if ally == nil {
		return e.noTarget(p, skill.Revive)
	}
	v, agi, r := e.finalStat(p, skill.StatAgi)
	amount := floorMul(v, reviveRate)
	if e.crit(p) {
		amount *= 2
		e.logf(LogCrit, "CRIT! %s's healing doubles.", p.Name)
	}
	healed := e.heal(ally, amount)
	e.logf(LogHeal, "%s heals %s: AGI %d x %d x 1.5 = %d -> +%d HP (%d/%d).", p.Name, ally.Name, agi, r, amount, healed, ally.HP, ally.MaxHP)
	return true
}

func (e *Encounter) bless(p *Player, a Action) bool {
	allies := e.allyTargets(p, a, true)
	if len(allies) == 0 {
		return e.noTarget(p, skill.Bless)
	}
	amount, agi, r := e.finalStat(p, skill.StatAgi)
	if e.crit(p) {
		amount *= 2
		e.logf(LogCrit, "CRIT! %s's blessing doubles.", p.Name)
	}
	for _, ally := range allies {
		healed := e.heal(ally, amount)
		e.logf(LogHeal, "%s blesses %s: AGI %d x %d = %d -> +%d HP (%d/%d).", p.Name, ally.Name, agi, r, amount, healed, ally.HP, ally.MaxHP)
	}
	return true
}

func (e *Encounter) encourage(p *Player, a Action) bool {
	ally := e.allyTarget(p, a.target(0), true)
	if ally == nil {
		return e.noTarget(p, skill.Encourage)
	}
	stat := a.Stat
	if stat == "" {
		stat = skill.StatAtk
	}
	ally.PendingBoosts = append(ally.PendingBoosts, Boost{Stat: stat, Value: encourageBonus, SourceID: p.ID})
	e.logf(LogSkill, "%s encourages %s: %s +%d next round.", p.Name, ally.Name, stat, encourageBonus)
	return true
}

func (e *Encounter) penance(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.Penance)
	}
	v, agi, r := e.finalStat(p, skill.StatAgi)
	val := floorMul(v, penanceRate)
	if e.crit(p) {
		val *= 2
		e.logf(LogCrit, "CRIT! %s's penance doubles.", p.Name)
	}
	if !m.Debuffs.Add(skill.Effect{Kind: skill.KindPenance, Value: val, Turns: penanceRounds, SourceID: p.ID}) {
		e.warnf("%s is already under penance; %s's penance has no effect.", m.Name, p.Name)
		return true
	}
	e.logf(LogSkill, "%s lays penance on %s: AGI %d x %d x 0.5 = -%d to its attacks this round.", p.Name, m.Name, agi, r, val)
	return true
}

func (e *Encounter) purify(p *Player, a Action) bool {
	allies := e.allyTargets(p, a, true)
	if len(allies) == 0 {
		return e.noTarget(p, skill.Purify)
	}
	for _, ally := range allies {
		n := len(ally.Dots) + ally.Debuffs.RemoveHarmful()
		ally.Dots = nil
		e.logf(LogSkill, "%s purifies %s (%d effect(s) removed).", p.Name, ally.Name, n)
	}
	return true
}

func (e *Encounter) reincarnation(p *Player, a Action) bool {
	ally := e.allyTarget(p, a.target(0), false)
	if ally == nil {
		return e.noTarget(p, skill.Reincarnation)
	}
	if !ally.UltimateUsed {
		e.logf(LogSkill, "%s offers reincarnation, but %s's ultimate is still unused.", p.Name, ally.Name)
		return true
	}
	ally.UltimateUsed = false
	e.logf(LogSkill, "%s grants %s another ultimate.", p.Name, ally.Name)
	return true
}

func (e *Encounter) rest(p *Player) bool {
	for _, ally := range e.players {
		ally.Down = false
		ally.DownCounter = 0
		ally.HP = ally.MaxHP
		ally.LastActive = ""
	}
	e.logf(LogHeal, "%s calls a rest: every ally returns to full HP.", p.Name)
	return true
}
