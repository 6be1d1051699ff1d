package battle

import (
	"math"

	"github.com/kasuganosora/raidtable/game/skill"
)

func (e *Encounter) madness(p *Player) bool {
	p.PendingAtk += madnessBonus
	e.logf(LogSkill, "%s works into a madness: ATK +%d next round (queued %d).", p.Name, madnessBonus, p.PendingAtk)
	return true
}

func (e *Encounter) obsession(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.Obsession)
	}
	v, atk, r := e.finalStat(p, skill.StatAtk)
	val := floorMul(v, obsessionRate)
	m.Dots.Add(skill.Effect{Kind: skill.KindObsession, Value: val, Turns: obsessionRounds, SourceID: p.ID})
	e.logf(LogDot, "%s marks %s: ATK %d x %d x 0.8 = %d per round for %d rounds.", p.Name, m.Name, atk, r, val, obsessionRounds)
	return true
}

func (e *Encounter) bloodfight(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.Bloodfight)
	}
	cost := int(math.Ceil(float64(p.HP) * bloodfightCost))
	p.HP = max(0, p.HP-cost)
	e.logf(LogSkill, "%s pays %d HP in blood.", p.Name, cost)
	if e.setDownIfNeeded(p) {
		e.warnf("%s collapses before the strike lands.", p.Name)
		return true
	}
	e.doAttack(p, m, attackOpts{Mult: bloodfightMult, Label: "bloodfights"})
	return true
}

func (e *Encounter) massacre(p *Player) bool {
	living := e.livingMonsters()
	if len(living) == 0 {
		return e.noTarget(p, skill.Massacre)
	}
	v, atk, r := e.finalStat(p, skill.StatAtk)
	dmg := floorMul(v, massacreRate)
	e.logf(LogSkill, "%s massacres: ATK %d x %d x 1.5 = %d to every monster.", p.Name, atk, r, dmg)
	for _, m := range living {
		res := e.applyDamage(m, dmg, DamageOptions{})
		e.logf(LogAction, "  %s: %s.", m.Name, describe(dmg, res))
		if !m.Alive {
			e.logf(LogInfo, "%s falls.", m.Name)
		}
	}
	return true
}

func (e *Encounter) mercy(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.Mercy)
	}
	e.doAttack(p, m, attackOpts{DiceTwice: true, Mult: mercyMult, Label: "shows no mercy to"})
	return true
}

func (e *Encounter) charge(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.Charge)
	}
	e.doAttack(p, m, attackOpts{DiceTwice: true, Mult: chargeMult, IgnoreDefense: true, Label: "charges"})
	return true
}
