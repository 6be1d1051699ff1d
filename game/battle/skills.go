package battle

import (
	"math"

	"github.com/kasuganosora/raidtable/game/skill"
)

const (
	guardShieldRate   = 0.8
	protectBonusRate  = 1.3
	devotionMult      = 2
	enduranceRounds   = 3
	endureReflectRate = 0.5
	stanceRounds      = 2
	stanceStrike      = 50
	madnessBonus      = 3
	obsessionRate     = 0.8
	obsessionRounds   = 3
	bloodfightCost    = 0.3
	bloodfightMult    = 2
	massacreRate      = 1.5
	mercyMult         = 2.5
	chargeMult        = 2
	reviveRate        = 1.5
	encourageBonus    = 3
	penanceRate       = 0.5
	penanceRounds     = 1
)

// resolveSkill runs the procedure for key. It returns false, after logging
// why, when the targets are not valid; the caller then substitutes a basic
// attack. Validation happens before any die is rolled.
func (e *Encounter) resolveSkill(p *Player, key skill.Key, a Action) bool {
	switch key {
	case skill.Guard:
		return e.guard(p, a)
	case skill.Protect:
		return e.protect(p, a)
	case skill.Endure:
		return e.endure(p)
	case skill.FightingSpirit:
		return e.fightingSpirit(p, a)
	case skill.Unyielding:
		return e.unyielding(p)
	case skill.Devotion:
		return e.devotion(p)

	case skill.Madness:
		return e.madness(p)
	case skill.Obsession:
		return e.obsession(p, a)
	case skill.Bloodfight:
		return e.bloodfight(p, a)
	case skill.Massacre:
		return e.massacre(p)
	case skill.Mercy:
		return e.mercy(p, a)
	case skill.Charge:
		return e.charge(p, a)

	case skill.Revive:
		return e.revive(p, a)
	case skill.Bless:
		return e.bless(p, a)
	case skill.Encourage:
		return e.encourage(p, a)
	case skill.Penance:
		return e.penance(p, a)
	case skill.Purify:
		return e.purify(p, a)
	case skill.Reincarnation:
		return e.reincarnation(p, a)
	case skill.Rest:
		return e.rest(p)
	}
	e.warnf("%s: skill %q is not implemented.", p.Name, key)
	return false
}

// ---- Targeting ----

func (e *Encounter) allyTarget(caster *Player, id string, allowSelf bool) *Player {
	ally := e.player(id)
	if ally == nil || !ally.Active() {
		return nil
	}
	if !allowSelf && ally.ID == caster.ID {
		return nil
	}
	return ally
}

func (e *Encounter) allyTargets(caster *Player, a Action, allowSelf bool) []*Player {
	var out []*Player
	for i := 0; i < maxActionTargets; i++ {
		ally := e.allyTarget(caster, a.target(i), allowSelf)
		if ally == nil {
			continue
		}
		dup := false
		for _, o := range out {
			if o == ally {
				dup = true
			}
		}
		if !dup {
			out = append(out, ally)
		}
	}
	return out
}

// enemyTarget is the chosen monster, or the first living one when none was
// chosen. A chosen monster that is already down is not a valid target.
func (e *Encounter) enemyTarget(a Action) *Monster {
	if m := e.monster(a.target(0)); m != nil {
		if !m.Alive {
			return nil
		}
		return m
	}
	return e.firstLivingMonster()
}

func (e *Encounter) noTarget(p *Player, key skill.Key) bool {
	e.warnf("%s: no valid target for %s.", p.Name, key)
	return false
}

func floorMul(v int, rate float64) int {
	return int(math.Floor(float64(v) * rate))
}
