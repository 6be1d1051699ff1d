package battle

import (
	"github.com/kasuganosora/raidtable/game/skill"
)

// dotPool sums DOT damage per receiver, in first-seen order.
type dotPool struct {
	order []*Player
	bleed map[*Player]int
	other map[*Player]int
}

func newDotPool() *dotPool {
	return &dotPool{bleed: make(map[*Player]int), other: make(map[*Player]int)}
}

func (d *dotPool) add(p *Player, bleed, other int) {
	if _, ok := d.bleed[p]; !ok {
		d.order = append(d.order, p)
	}
	d.bleed[p] += bleed
	d.other[p] += other
}

// dotReceiver applies DOT redirect precedence: tanking-all, then protect,
// then the owner.
func (e *Encounter) dotReceiver(owner, tankAll *Player) *Player {
	if tankAll != nil && tankAll != owner {
		return tankAll
	}
	if tank := e.protector(owner); tank != nil {
		return tank
	}
	return owner
}

// tickDots runs once per round between player and monster actions.
func (e *Encounter) tickDots() {
	tankAll := e.tankingAll()
	pool := newDotPool()

	for _, p := range e.players {
		if !p.Active() || len(p.Dots) == 0 {
			continue
		}
		bleed, other := 0, 0
		for _, d := range p.Dots {
			if d.Kind == skill.KindBleed {
				bleed += d.Value
			} else {
				other += d.Value
			}
		}
		p.Dots.Decay()
		if bleed > 0 || other > 0 {
			pool.add(e.dotReceiver(p, tankAll), bleed, other)
		}
	}

	for _, t := range pool.order {
		if raw := pool.bleed[t]; raw > 0 {
			res := e.applyDamage(t, raw, DamageOptions{IgnoreDefense: true, AllowFloor: t.TankingAll})
			e.logf(LogDot, "Bleeding hurts %s: %s.", t.Name, describe(raw, res))
			e.afterPlayerHit(t, res, !t.TankingAll)
		}
		if raw := pool.other[t]; raw > 0 {
			res := e.applyDamage(t, raw, DamageOptions{AllowFloor: t.TankingAll})
			e.logf(LogDot, "Lingering damage hurts %s: %s.", t.Name, describe(raw, res))
			e.afterPlayerHit(t, res, !t.TankingAll)
		}
	}

	for _, m := range e.monsters {
		if !m.Alive || len(m.Dots) == 0 {
			continue
		}
		total := 0
		for _, d := range m.Dots {
			total += d.Value
		}
		m.Dots.Decay()
		res := e.applyDamage(m, total, DamageOptions{IgnoreDefense: true})
		e.logf(LogDot, "%s suffers its wounds: %s.", m.Name, describe(total, res))
		if !m.Alive {
			e.logf(LogInfo, "%s falls.", m.Name)
		}
	}
}

// afterPlayerHit feeds endurance and, when asked, runs the down check.
func (e *Encounter) afterPlayerHit(p *Player, res DamageResult, downCheck bool) {
	if p.Endure != nil {
		p.Endure.Accum += res.Dealt
	}
	if downCheck {
		e.setDownIfNeeded(p)
	}
}

// tickStances counts down endurance and fighting stance after the monster
// turn. An expiring endurance reflects half of what it stored.
func (e *Encounter) tickStances() {
	for _, p := range e.players {
		if p.Endure != nil {
			p.Endure.TurnsLeft--
			if p.Endure.TurnsLeft <= 0 {
				e.releaseEndurance(p)
			}
		}
		if p.Stance != nil {
			p.Stance.TurnsLeft--
			if p.Stance.TurnsLeft <= 0 {
				p.Stance = nil
				e.logf(LogSkill, "%s's fighting stance ends.", p.Name)
			}
		}
	}
}

func (e *Encounter) releaseEndurance(p *Player) {
	accum := p.Endure.Accum
	p.Endure = nil
	p.HasAggro = false
	if p.Down {
		e.warnf("%s fell before their endurance paid off.", p.Name)
		return
	}
	dmg := floorMul(accum, endureReflectRate)
	m := e.randomLivingMonster()
	if m == nil || dmg <= 0 {
		e.logf(LogSkill, "%s's endurance ends with nothing to return (stored %d).", p.Name, accum)
		return
	}
	res := e.applyDamage(m, dmg, DamageOptions{IgnoreDefense: true})
	e.logf(LogSkill, "%s returns what they endured to %s: %d x 0.5 -> %s.", p.Name, m.Name, accum, describe(dmg, res))
	if !m.Alive {
		e.logf(LogInfo, "%s falls.", m.Name)
	}
}

// decay runs at the end of the round. Bonus markers on their last turn are
// reverted first, then every timer ticks and spent entries are removed.
func (e *Encounter) decay() {
	for _, p := range e.players {
		for _, d := range p.Debuffs.Expiring() {
			st, ok := skill.MarkerStat(d.Kind)
			if !ok {
				continue
			}
			p.Temp.Set(st, max(0, p.Temp.Get(st)-d.Value))
			e.logf(LogInfo, "%s's %s bonus fades (-%d).", p.Name, st, d.Value)
		}
		p.Debuffs.Decay()
		p.Shields.ExpireThrough(e.round)
	}
	for _, m := range e.monsters {
		m.Debuffs.Decay()
		m.Shields.ExpireThrough(e.round)
		kept := m.Buffs[:0]
		for _, b := range m.Buffs {
			b.Turns--
			if b.Turns > 0 {
				kept = append(kept, b)
			}
		}
		m.Buffs = kept
	}
}
