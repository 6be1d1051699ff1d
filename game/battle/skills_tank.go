package battle

import (
	"math"

	"github.com/kasuganosora/raidtable/game/skill"
)

func (e *Encounter) guard(p *Player, a Action) bool {
	allies := e.allyTargets(p, a, false)
	if len(allies) == 0 {
		return e.noTarget(p, skill.Guard)
	}
	v, def, r := e.finalStat(p, skill.StatDef)
	shield := floorMul(v, guardShieldRate)
	if e.crit(p) {
		shield *= 2
		e.logf(LogCrit, "CRIT! %s's guard doubles.", p.Name)
	}
	for _, ally := range allies {
		ally.Shields = append(ally.Shields, skill.Shield{Value: shield, ExpiresRound: e.round})
		e.logf(LogSkill, "%s guards %s: DEF %d x %d x 0.8 -> shield %d.", p.Name, ally.Name, def, r, shield)
	}
	return true
}

func (e *Encounter) protect(p *Player, a Action) bool {
	ally := e.allyTarget(p, a.target(0), false)
	if ally == nil {
		return e.noTarget(p, skill.Protect)
	}
	_, def, r := e.finalStat(p, skill.StatDef)
	bonus := int(math.Floor(float64(def) * protectBonusRate * float64(r)))
	if e.crit(p) {
		bonus *= 2
		e.logf(LogCrit, "CRIT! %s's protection doubles.", p.Name)
	}
	ally.Redirect = &Redirect{TankID: p.ID, Mode: RedirectFull, DefenseBonus: bonus, ExpiresRound: e.round}
	e.logf(LogSkill, "%s protects %s this round (flat soak DEF %d x 1.3 x %d = %d).", p.Name, ally.Name, def, r, bonus)
	return true
}

func (e *Encounter) endure(p *Player) bool {
	p.Endure = &Endurance{TurnsLeft: enduranceRounds}
	p.HasAggro = true
	e.logf(LogSkill, "%s braces to endure for %d rounds and draws aggro.", p.Name, enduranceRounds)
	return true
}

func (e *Encounter) fightingSpirit(p *Player, a Action) bool {
	m := e.enemyTarget(a)
	if m == nil {
		return e.noTarget(p, skill.FightingSpirit)
	}
	p.Stance = &Stance{TurnsLeft: stanceRounds}
	e.logf(LogSkill, "%s takes a fighting stance (DEF -%d for %d rounds).", p.Name, stancePenalty, stanceRounds)
	e.doAttack(p, m, attackOpts{Fixed: stanceStrike, IgnoreDefense: true, Label: "strikes"})
	return true
}

func (e *Encounter) unyielding(p *Player) bool {
	p.TankingAll = true
	p.MinHPFloor = true
	e.logf(LogSkill, "%s stands unyielding: all damage to allies comes to them this round, HP cannot drop below 1.", p.Name)
	return true
}

func (e *Encounter) devotion(p *Player) bool {
	living := e.livingMonsters()
	if len(living) == 0 {
		return e.noTarget(p, skill.Devotion)
	}
	v, def, r := e.finalStat(p, skill.StatDef)
	dmg := v * devotionMult
	e.logf(LogSkill, "%s devotes everything: DEF %d x %d x %d = %d to every monster.", p.Name, def, r, devotionMult, dmg)
	for _, m := range living {
		res := e.applyDamage(m, dmg, DamageOptions{})
		e.logf(LogAction, "  %s: %s.", m.Name, describe(dmg, res))
		if !m.Alive {
			e.logf(LogInfo, "%s falls.", m.Name)
		}
	}
	p.HP = 0
	e.setDownIfNeeded(p)
	return true
}
