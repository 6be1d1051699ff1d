package battle

import (
	"testing"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

func threePlayers(t *testing.T, e *Encounter) (a, b, c *Player) {
	a = addPlayer(t, e, "A", skill.RoleTank, flat(7))
	b = addPlayer(t, e, "B", skill.RoleDPS, flat(7))
	c = addPlayer(t, e, "C", skill.RoleSupport, flat(7))
	return
}

func TestChooseIntent_CategoryBrackets(t *testing.T) {
	cases := []struct {
		draw float64
		want IntentType
	}{
		{0.10, IntentSingle},
		{0.30, IntentAOE},
		{0.60, IntentBleed},
		{0.90, IntentBuff},
	}
	for _, tc := range cases {
		e, seq := newTestEncounter(t)
		threePlayers(t, e)
		m := addMonster(t, e, "M", 500, flat(5))
		m.Pattern = Pattern{Single: 1, AOE: 1, Bleed: 1, Buff: 1}
		seq.Push(tc.draw)
		if got := e.chooseIntent(m); got.Type != tc.want {
			t.Errorf("draw %.2f: %s, want %s", tc.draw, got.Type, tc.want)
		}
	}
}

func TestChooseIntent_AOETargets(t *testing.T) {
	e, seq := newTestEncounter(t)
	_, b, c := threePlayers(t, e)
	m := addMonster(t, e, "M", 500, flat(5))
	m.Pattern = Pattern{AOE: 1}
	seq.Push(0.5, dice.Hit) // AOE, 2 targets, then picks run on the 0.99 default

	in := e.chooseIntent(m)
	if in.Type != IntentAOE || len(in.TargetIDs) != 2 {
		t.Fatalf("intent = %+v", in)
	}
	if in.TargetIDs[0] != c.ID || in.TargetIDs[1] != b.ID {
		t.Errorf("targets = %v", in.TargetIDs)
	}
}

func TestChooseIntent_ZeroPatternIsSingle(t *testing.T) {
	e, seq := newTestEncounter(t)
	threePlayers(t, e)
	m := addMonster(t, e, "M", 500, flat(5))
	m.Pattern = Pattern{}
	seq.Push(0.0)

	in := e.chooseIntent(m)
	if in.Type != IntentSingle || len(in.TargetIDs) != 1 {
		t.Errorf("intent = %+v", in)
	}
	if seq.Used() != 1 {
		t.Errorf("draws used = %d, want only the target pick", seq.Used())
	}
}

func TestChooseIntent_BuffStat(t *testing.T) {
	e, seq := newTestEncounter(t)
	threePlayers(t, e)
	m := addMonster(t, e, "M", 500, flat(5))
	m.Pattern = Pattern{Buff: 1}
	seq.Push(0.0, 0.5)

	in := e.chooseIntent(m)
	if in.Type != IntentBuff || in.BuffStat != skill.StatDef || len(in.TargetIDs) != 0 {
		t.Errorf("intent = %+v", in)
	}
}

func TestSelectTargets_Aggro(t *testing.T) {
	e, seq := newTestEncounter(t)
	a, b, _ := threePlayers(t, e)
	b.HasAggro = true

	seq.Push(0.1, 0.0)
	if got := e.selectTargets(1); got[0] != b.ID {
		t.Errorf("coin won but target = %v", got)
	}
	seq.Push(0.7, 0.0)
	if got := e.selectTargets(1); got[0] != a.ID {
		t.Errorf("coin lost but target = %v", got)
	}
}

func TestSelectTargets_NoRepeatsAndSkipsDown(t *testing.T) {
	e, _ := newTestEncounter(t)
	a, b, c := threePlayers(t, e)
	c.Down = true

	got := e.selectTargets(3)
	if len(got) != 2 {
		t.Fatalf("targets = %v", got)
	}
	seen := map[string]bool{}
	for _, id := range got {
		if id == c.ID || seen[id] {
			t.Errorf("bad target list %v", got)
		}
		seen[id] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Errorf("targets = %v", got)
	}
}

func TestChooseIntents_NeedsBothSides(t *testing.T) {
	e, _ := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, flat(5))
	m.Alive = false
	if _, ok := e.chooseIntents(); ok {
		t.Error("intents with no living monster")
	}
	m.Alive = true
	p.Down = true
	if _, ok := e.chooseIntents(); ok {
		t.Error("intents with no active player")
	}
}
