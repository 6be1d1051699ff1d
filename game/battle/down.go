package battle

import (
	"github.com/kasuganosora/raidtable/game/skill"
)

const (
	downRounds     = 2
	reviveHPRate   = 0.3
	gmReviveHPRate = 0.5
)

// setDownIfNeeded moves a player at 0 hp to Down. It reports whether the
// transition happened.
func (e *Encounter) setDownIfNeeded(p *Player) bool {
	if p.HP > 0 || p.Down {
		return false
	}
	p.Down = true
	p.DownCounter = downRounds
	p.HP = 0
	e.logf(LogInfo, "%s is down (back in %d rounds).", p.Name, downRounds)
	return true
}

// startOfRound counts a downed player toward revival, or applies the bonuses
// an active player queued last round.
func (e *Encounter) startOfRound(p *Player) {
	if p.Down {
		p.DownCounter = max(0, p.DownCounter-1)
		if p.DownCounter > 0 {
			return
		}
		p.Down = false
		p.HP = max(1, floorMul(p.MaxHP, reviveHPRate))
		p.clearCombatState()
		e.logf(LogHeal, "%s gets back up with %d HP.", p.Name, p.HP)
		return
	}

	if p.PendingAtk > 0 {
		v := p.PendingAtk
		p.Temp.Atk += v
		p.Debuffs.Add(skill.Effect{Kind: skill.KindMadnessAtk, Value: v, Turns: 1, SourceID: p.ID})
		e.logf(LogSkill, "%s's madness takes hold: ATK +%d this round.", p.Name, v)
	}
	for _, b := range p.PendingBoosts {
		p.Temp.Add(b.Stat, b.Value)
		p.Debuffs.Add(skill.Effect{Kind: skill.EncourageKind(b.Stat), Value: b.Value, Turns: 1, SourceID: b.SourceID})
		e.logf(LogSkill, "%s is encouraged: %s +%d this round.", p.Name, b.Stat, b.Value)
	}
	p.PendingAtk = 0
	p.PendingBoosts = nil
}

// clearCombatState wipes every status list and flag on p. Down state, hp
// and the ultimate are left alone.
func (p *Player) clearCombatState() {
	p.Shields = nil
	p.Debuffs = nil
	p.Dots = nil
	p.Temp = Stats{}
	p.LastActive = ""
	p.DefendBonus = 0
	p.MinHPFloor = false
	p.TankingAll = false
	p.Redirect = nil
	p.Endure = nil
	p.Stance = nil
	p.PendingAtk = 0
	p.PendingBoosts = nil
	p.HasAggro = false
}

func (m *Monster) clearCombatState() {
	m.Shields = nil
	m.Debuffs = nil
	m.Dots = nil
	m.Buffs = nil
	m.Temp = Stats{}
}

// clearRoundFlags drops the flags that only last one round.
func (p *Player) clearRoundFlags() {
	p.DefendBonus = 0
	p.MinHPFloor = false
	p.TankingAll = false
	p.Redirect = nil
}
