package battle

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

const (
	monsterBuffRounds = 2
	bleedRounds       = 2
	singleAttackMult  = 2
)

// monsterAttack applies penance to a monster's raw attack value.
func monsterAttack(m *Monster, raw int) int {
	return max(0, raw-m.Debuffs.Total(skill.KindPenance))
}

func attackFormula(atk, roll, sides, mult, base, raw int) string {
	f := fmt.Sprintf("ATK %d x %d(1d%d)", atk, roll, sides)
	if mult != 1 {
		f += fmt.Sprintf(" x %d", mult)
	}
	f += fmt.Sprintf(" = %d", base)
	if raw != base {
		f += fmt.Sprintf(", %d after penance", raw)
	}
	return f
}

// resolveMonsterActions carries out this round's intents in order.
func (e *Encounter) resolveMonsterActions() {
	for _, in := range e.intents {
		m := e.monster(in.MonsterID)
		if m == nil || !m.Alive {
			continue
		}
		switch in.Type {
		case IntentBuff:
			inc := dice.D5(e.src)
			m.Buffs = append(m.Buffs, SelfBuff{Stat: in.BuffStat, Value: inc, Turns: monsterBuffRounds})
			e.logf(LogMonster, "%s powers up: %s +%d for %d rounds.", m.Name, in.BuffStat, inc, monsterBuffRounds)
		case IntentAOE:
			e.monsterAOE(m, in)
		case IntentBleed:
			e.monsterBleed(m, in)
		default:
			e.monsterSingle(m, in)
		}
	}
	e.tickStances()
}

func (e *Encounter) intentTargets(in Intent) []*Player {
	var out []*Player
	for _, id := range in.TargetIDs {
		if p := e.player(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (e *Encounter) monsterSingle(m *Monster, in Intent) {
	var t *Player
	if targets := e.intentTargets(in); len(targets) > 0 {
		t = targets[0]
	} else {
		t = e.randomActivePlayer()
	}
	if t == nil {
		return
	}
	atk := EffectiveStat(m, skill.StatAtk)
	roll := dice.D6(e.src)
	base := atk * roll * singleAttackMult
	raw := monsterAttack(m, base)
	formula := attackFormula(atk, roll, 6, singleAttackMult, base, raw)

	// Unyielding, then Protect, then the target.
	if tank := e.tankingAll(); tank != nil {
		res := e.applyDamage(tank, raw, DamageOptions{AllowFloor: tank.MinHPFloor})
		e.logf(LogMonster, "%s strikes at %s; %s takes it unyielding. %s: %s.", m.Name, t.Name, tank.Name, formula, describe(raw, res))
		e.afterPlayerHit(tank, res, true)
		return
	}
	if t.Active() {
		if tank := e.protector(t); tank != nil {
			bonus := t.Redirect.DefenseBonus
			res := e.applyDamage(tank, raw, DamageOptions{IgnoreDefense: true, AllowFloor: tank.MinHPFloor, DefenseBonus: bonus})
			e.logf(LogMonster, "%s strikes at %s; %s steps in. %s: %s.", m.Name, t.Name, tank.Name, formula, describe(raw, res))
			e.afterPlayerHit(tank, res, true)
			return
		}
	}
	res := e.applyDamage(t, raw, DamageOptions{AllowFloor: t.MinHPFloor})
	e.logf(LogMonster, "%s strikes %s. %s: %s.", m.Name, t.Name, formula, describe(raw, res))
	e.afterPlayerHit(t, res, true)
}

// aoeHit is one rolled AOE hit before it is applied.
type aoeHit struct {
	target  *Player
	protect *Player
	pooled  bool
	raw     int
	formula string
}

// monsterAOE rolls every hit first, then applies them. Protect-diverted
// hits land one by one on the protector; Unyielding-diverted hits are
// pooled into a single hit that goes through defense once.
func (e *Encounter) monsterAOE(m *Monster, in Intent) {
	tankAll := e.tankingAll()
	var hits []aoeHit
	for _, t := range e.intentTargets(in) {
		if !t.Active() {
			continue
		}
		atk := EffectiveStat(m, skill.StatAtk)
		roll := dice.D6(e.src)
		base := atk * roll
		h := aoeHit{target: t, raw: monsterAttack(m, base)}
		h.formula = attackFormula(atk, roll, 6, 1, base, h.raw)
		if tankAll != nil && tankAll != t {
			h.pooled = true
		} else {
			h.protect = e.protector(t)
		}
		hits = append(hits, h)
	}

	pooled := 0
	var sources []string
	seen := make(map[*Player]bool)
	for _, h := range hits {
		switch {
		case h.pooled:
			pooled += h.raw
			sources = append(sources, fmt.Sprintf("%s %d", h.target.Name, h.raw))
		case h.protect != nil:
			tank := h.protect
			bonus := h.target.Redirect.DefenseBonus
			res := e.applyDamage(tank, h.raw, DamageOptions{IgnoreDefense: true, AllowFloor: tank.MinHPFloor, DefenseBonus: bonus})
			e.logf(LogMonster, "%s sweeps %s; %s steps in. %s: %s.", m.Name, h.target.Name, tank.Name, h.formula, describe(h.raw, res))
			e.afterPlayerHit(tank, res, true)
		default:
			if seen[h.target] {
				continue
			}
			seen[h.target] = true
			res := e.applyDamage(h.target, h.raw, DamageOptions{AllowFloor: h.target.MinHPFloor})
			e.logf(LogMonster, "%s sweeps %s. %s: %s.", m.Name, h.target.Name, h.formula, describe(h.raw, res))
			e.afterPlayerHit(h.target, res, true)
		}
	}

	if tankAll != nil && pooled > 0 {
		res := e.applyDamage(tankAll, pooled, DamageOptions{AllowFloor: true})
		e.logf(LogMonster, "%s takes the whole sweep unyielding (%s = %d): %s.",
			tankAll.Name, strings.Join(sources, " + "), pooled, describe(pooled, res))
		e.afterPlayerHit(tankAll, res, false)
	}
}

// monsterBleed opens a 2-round bleed on each target and deals the first tick
// at once, ignoring defense. Unyielding-diverted bleeds are pooled into one
// immediate hit; each still leaves its own DOT entry on the tank.
func (e *Encounter) monsterBleed(m *Monster, in Intent) {
	tankAll := e.tankingAll()
	pooled := 0
	var sources []string
	for _, t := range e.intentTargets(in) {
		if !t.Active() {
			continue
		}
		to, why := t, ""
		if tankAll != nil && tankAll != t {
			to, why = tankAll, "unyielding"
		} else if tank := e.protector(t); tank != nil {
			to, why = tank, "protect"
		}

		atk := EffectiveStat(m, skill.StatAtk)
		roll := dice.D2(e.src)
		val := atk * roll
		to.Dots.Add(skill.Effect{Kind: skill.KindBleed, Value: val, Turns: bleedRounds, SourceID: m.ID})

		if why == "unyielding" {
			pooled += val
			sources = append(sources, fmt.Sprintf("%s %d", t.Name, val))
			continue
		}
		res := e.applyDamage(to, val, DamageOptions{IgnoreDefense: true, AllowFloor: to.TankingAll})
		if why == "" {
			e.logf(LogDot, "%s tears into %s: ATK %d x %d(1d2) = %d bleed now and for %d more rounds -> %d dmg.",
				m.Name, to.Name, atk, roll, val, bleedRounds, res.Dealt)
		} else {
			e.logf(LogDot, "%s tears at %s; %s steps in: ATK %d x %d(1d2) = %d bleed now and for %d more rounds -> %d dmg.",
				m.Name, t.Name, to.Name, atk, roll, val, bleedRounds, res.Dealt)
		}
		e.afterPlayerHit(to, res, !to.TankingAll)
	}

	if tankAll != nil && pooled > 0 {
		res := e.applyDamage(tankAll, pooled, DamageOptions{IgnoreDefense: true, AllowFloor: true})
		e.logf(LogDot, "%s takes every bleed unyielding (%s = %d): %s.",
			tankAll.Name, strings.Join(sources, " + "), pooled, describe(pooled, res))
		e.afterPlayerHit(tankAll, res, false)
	}
}
