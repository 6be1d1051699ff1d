package battle

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

// IntentType is a monster's action category.
type IntentType string

const (
	IntentSingle IntentType = "SINGLE"
	IntentAOE    IntentType = "AOE"
	IntentBleed  IntentType = "BLEED"
	IntentBuff   IntentType = "BUFF"
)

// Intent is a monster's planned action, shown to players as the round hint.
type Intent struct {
	MonsterID string     `json:"monster_id"`
	Type      IntentType `json:"type"`
	TargetIDs []string   `json:"target_ids,omitempty"`
	BuffStat  skill.Stat `json:"buff_stat,omitempty"`
	Text      string     `json:"text"`
}

var buffStats = []skill.Stat{skill.StatAtk, skill.StatDef, skill.StatAgi}

// chooseIntents plans every living monster's action. It returns false when
// there is no living monster or no active player.
func (e *Encounter) chooseIntents() ([]Intent, bool) {
	if len(e.livingMonsters()) == 0 || len(e.activePlayers()) == 0 {
		return nil, false
	}
	var out []Intent
	for _, m := range e.monsters {
		if !m.Alive {
			continue
		}
		out = append(out, e.chooseIntent(m))
	}
	return out, true
}

func (e *Encounter) chooseIntent(m *Monster) Intent {
	alive := len(e.activePlayers())
	in := Intent{MonsterID: m.ID, Type: IntentSingle}

	pat := m.Pattern
	if total := float64(pat.Total()); total > 0 {
		single := float64(pat.Single) / total
		aoe := single + float64(pat.AOE)/total
		bleed := aoe + float64(pat.Bleed)/total
		r := e.src.Float64()
		switch {
		case r < single:
			in.Type = IntentSingle
		case r < aoe:
			in.Type = IntentAOE
		case r < bleed:
			in.Type = IntentBleed
		case pat.Buff > 0:
			in.Type = IntentBuff
		}
	}

	switch in.Type {
	case IntentAOE:
		in.TargetIDs = e.selectTargets(min(alive, e.src.Intn(3)+2))
	case IntentBleed:
		in.TargetIDs = e.selectTargets(min(alive, e.src.Intn(2)+2))
	case IntentBuff:
		in.BuffStat = buffStats[dice.Pick(e.src, len(buffStats))]
	default:
		in.TargetIDs = e.selectTargets(1)
	}
	in.Text = e.intentText(m, in)
	return in
}

// selectTargets fills count slots from the active players without repeats.
// While an unpicked aggro holder remains, each slot has an even chance of
// going to one of them.
func (e *Encounter) selectTargets(count int) []string {
	available := e.activePlayers()
	var picked []string
	for len(picked) < count && len(available) > 0 {
		var aggro []int
		for i, p := range available {
			if p.HasAggro {
				aggro = append(aggro, i)
			}
		}
		var idx int
		if len(aggro) > 0 && e.src.Float64() < 0.5 {
			idx = aggro[dice.Pick(e.src, len(aggro))]
		} else {
			idx = dice.Pick(e.src, len(available))
		}
		picked = append(picked, available[idx].ID)
		available = append(available[:idx:idx], available[idx+1:]...)
	}
	return picked
}

func (e *Encounter) intentText(m *Monster, in Intent) string {
	names := make([]string, 0, len(in.TargetIDs))
	for _, id := range in.TargetIDs {
		if p := e.player(id); p != nil {
			names = append(names, p.Name)
		}
	}
	who := strings.Join(names, ", ")
	switch in.Type {
	case IntentAOE:
		return fmt.Sprintf("%s winds up a sweeping attack at %s.", m.Name, who)
	case IntentBleed:
		return fmt.Sprintf("%s bares its claws at %s (bleeding).", m.Name, who)
	case IntentBuff:
		return fmt.Sprintf("%s gathers strength (%s up).", m.Name, in.BuffStat)
	}
	return fmt.Sprintf("%s glares at %s.", m.Name, who)
}
