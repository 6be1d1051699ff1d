package battle

import (
	"fmt"
	"math"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

// ActionType is what a player does this round.
type ActionType string

const (
	ActAttack   ActionType = "ATTACK"
	ActDefend   ActionType = "DEFEND"
	ActActive   ActionType = "ACTIVE"
	ActUltimate ActionType = "ULTIMATE"
)

// Action is one player's submission for the round.
type Action struct {
	Type    ActionType `json:"type"`
	Skill   skill.Key  `json:"skill,omitempty"`
	Targets []string   `json:"targets,omitempty"`
	Stat    skill.Stat `json:"stat,omitempty"`
}

func (a Action) target(i int) string {
	if i < len(a.Targets) {
		return a.Targets[i]
	}
	return ""
}

func (a Action) clone() Action {
	a.Targets = append([]string(nil), a.Targets...)
	return a
}

const maxActionTargets = 2

// SubmitAction records a player's action for the current round.
func (e *Encounter) SubmitAction(playerID string, a Action) bool {
	if e.Phase() != PhasePlayer {
		e.warnf("Actions are taken during the PLAYER phase (now %s).", e.Phase())
		return false
	}
	p := e.player(playerID)
	if p == nil {
		e.warnf("No player %q.", playerID)
		return false
	}
	if !p.Active() {
		e.warnf("%s is down and cannot act.", p.Name)
		return false
	}
	switch a.Type {
	case ActAttack, ActDefend, ActActive, ActUltimate:
	default:
		e.warnf("Unknown action type %q for %s.", a.Type, p.Name)
		return false
	}
	if len(a.Targets) > maxActionTargets {
		e.warnf("%s named %d targets; only the first %d count.", p.Name, len(a.Targets), maxActionTargets)
		a.Targets = a.Targets[:maxActionTargets]
	}
	if a.Stat != "" {
		st, ok := skill.ParseStat(string(a.Stat))
		if !ok {
			e.warnf("Unknown stat %q for %s.", a.Stat, p.Name)
			return false
		}
		a.Stat = st
	}
	e.actions[playerID] = a.clone()
	return true
}

// AutoFillActions gives every active player without an action a basic
// attack on the first living monster.
func (e *Encounter) AutoFillActions() int {
	if e.Phase() != PhasePlayer {
		e.warnf("Actions are taken during the PLAYER phase (now %s).", e.Phase())
		return 0
	}
	m := e.firstLivingMonster()
	n := 0
	for _, p := range e.activePlayers() {
		if _, ok := e.actions[p.ID]; ok {
			continue
		}
		a := Action{Type: ActAttack}
		if m != nil {
			a.Targets = []string{m.ID}
		}
		e.actions[p.ID] = a
		n++
	}
	e.logf(LogInfo, "Auto-filled %d attack(s).", n)
	return n
}

// ClearActions drops every submitted action.
func (e *Encounter) ClearActions() {
	e.actions = make(map[string]Action)
	e.logf(LogInfo, "Submitted actions cleared.")
}

// ---- Resolution ----

func (e *Encounter) resolvePlayerAction(p *Player, a Action) {
	switch a.Type {
	case ActDefend:
		e.logf(LogAction, "%s defends (bonus %d).", p.Name, p.DefendBonus)
		p.LastActive = ""

	case ActActive:
		key := a.Skill
		if s, ok := skill.Lookup(key); ok {
			key = s.Key
		}
		switch {
		case key == "":
			e.warnf("%s chose no active skill; basic attack instead.", p.Name)
			e.fallbackAttack(p)
		case !p.hasActive(key):
			e.warnf("%s does not know %s; basic attack instead.", p.Name, key)
			e.fallbackAttack(p)
		case key == p.LastActive:
			e.warnf("%s cannot repeat %s two rounds running; basic attack instead.", p.Name, key)
			e.fallbackAttack(p)
		default:
			if e.resolveSkill(p, key, a) {
				p.LastActive = key
			} else {
				e.fallbackAttack(p)
			}
		}

	case ActUltimate:
		if p.UltimateUsed {
			e.warnf("%s already spent %s; basic attack instead.", p.Name, p.Ultimate)
			e.fallbackAttack(p)
			return
		}
		if e.resolveSkill(p, p.Ultimate, a) {
			p.UltimateUsed = true
			p.LastActive = ""
		} else {
			e.fallbackAttack(p)
		}

	default:
		target := e.monster(a.target(0))
		if target != nil && !target.Alive {
			e.warnf("%s is already down; %s retargets.", target.Name, p.Name)
			target = nil
		}
		if target == nil {
			target = e.firstLivingMonster()
		}
		if target != nil {
			e.doAttack(p, target, attackOpts{Label: "attacks"})
		} else {
			e.warnf("%s has nothing to attack.", p.Name)
		}
		p.LastActive = ""
	}
}

// fallbackAttack is the basic attack substituted for a rejected action.
func (e *Encounter) fallbackAttack(p *Player) {
	p.LastActive = ""
	m := e.firstLivingMonster()
	if m == nil {
		e.warnf("%s has nothing to attack.", p.Name)
		return
	}
	e.doAttack(p, m, attackOpts{Label: "attacks"})
}

type attackOpts struct {
	Mult          float64 // 0 means 1
	IgnoreDefense bool
	Label         string
	DiceTwice     bool
	Fixed         int // > 0 replaces the attack roll and skips crit doubling
}

// doAttack is the shared attack-roll path: roll, multiply, crit, then the
// damage pipeline.
func (e *Encounter) doAttack(attacker Combatant, target *Monster, o attackOpts) DamageResult {
	name := attacker.unit().Name
	if !target.Alive {
		e.warnf("%s is already down.", target.Name)
		return DamageResult{}
	}

	var raw float64
	var formula string
	switch {
	case o.Fixed > 0:
		raw = float64(o.Fixed)
		formula = "fixed"
	case o.DiceTwice:
		atk := EffectiveStat(attacker, skill.StatAtk)
		r1, r2 := dice.D6(e.src), dice.D6(e.src)
		raw = float64(atk*r1 + atk*r2)
		formula = fmt.Sprintf("ATK %d x %d + ATK %d x %d", atk, r1, atk, r2)
	default:
		atk := EffectiveStat(attacker, skill.StatAtk)
		r := dice.D6(e.src)
		raw = float64(atk * r)
		formula = fmt.Sprintf("ATK %d x %d", atk, r)
	}
	mult := o.Mult
	if mult == 0 {
		mult = 1
	}
	if mult != 1 {
		raw *= mult
		formula += fmt.Sprintf(" x %g", mult)
	}
	if e.crit(attacker) && o.Fixed == 0 {
		raw *= 2
		e.logf(LogCrit, "CRIT! %s doubles the hit.", name)
	}
	amount := int(math.Floor(raw))
	res := e.applyDamage(target, amount, DamageOptions{IgnoreDefense: o.IgnoreDefense})
	e.logf(LogAction, "%s %s %s: %s = %s.", name, o.Label, target.Name, formula, describe(amount, res))
	if !target.Alive {
		e.logf(LogInfo, "%s falls.", target.Name)
	}
	return res
}
