package battle

import (
	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

const (
	statCap        = 99
	stancePenalty  = 3
	playerBaseHP   = 150
	playerHPPerVit = 10
	critChanceCap  = 100
)

// EffectiveStat is base + temp + matching self-buffs + state adjustments,
// clamped to [0, 99].
func EffectiveStat(c Combatant, st skill.Stat) int {
	u := c.unit()
	v := u.Base.Get(st) + u.Temp.Get(st)
	switch x := c.(type) {
	case *Monster:
		for _, b := range x.Buffs {
			if b.Stat == st {
				v += b.Value
			}
		}
	case *Player:
		if st == skill.StatDef && x.Stance != nil {
			v -= stancePenalty
		}
	}
	return clamp(v, 0, statCap)
}

// CritChance is the base agility read as a percent. Temp bonuses never
// raise it.
func CritChance(c Combatant) int {
	return clamp(c.unit().Base.Agi, 0, critChanceCap)
}

// finalStat rolls effective stat x 1d6.
func (e *Encounter) finalStat(c Combatant, st skill.Stat) (value, eff, die int) {
	eff = EffectiveStat(c, st)
	die = dice.D6(e.src)
	return eff * die, eff, die
}

// crit runs the attacker's crit check.
func (e *Encounter) crit(c Combatant) bool {
	return dice.Chance(e.src, CritChance(c))
}

func playerMaxHP(vit int) int { return playerBaseHP + vit*playerHPPerVit }
