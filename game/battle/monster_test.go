package battle

import (
	"testing"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

func tankStats() Stats { return Stats{Vit: 6, Atk: 6, Def: 10, Agi: 6} }

func TestMonsterAOE_UnyieldingPoolsOthers(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, tankStats())
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	b := addPlayer(t, e, "B", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 10, Def: 1, Agi: 1})
	tank.TankingAll, tank.MinHPFloor = true, true

	seq.Push(dice.Face(1, 6), dice.Face(2, 6), dice.Face(3, 6), dice.Face(1, 2), dice.Face(1, 2))
	e.monsterAOE(m, Intent{MonsterID: m.ID, Type: IntentAOE, TargetIDs: []string{a.ID, b.ID, tank.ID}})

	if a.HP != a.MaxHP || b.HP != b.MaxHP {
		t.Errorf("allies hit: %d %d", a.HP, b.HP)
	}
	// own 30 - 10, pooled 10 + 20 - 10
	if want := tank.MaxHP - 40; tank.HP != want {
		t.Errorf("tank hp = %d, want %d", tank.HP, want)
	}
	if len(logsMentioning(e.log, "whole sweep")) != 1 {
		t.Error("no pooled hit logged")
	}
	if seq.Used() != 5 {
		t.Errorf("draws = %d, want 5", seq.Used())
	}
}

func TestMonsterAOE_PooledHitNeverDowns(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, tankStats())
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 20, Def: 1, Agi: 1})
	tank.TankingAll = true
	tank.HP = 5

	seq.Push(dice.Face(6, 6), dice.Face(1, 2))
	e.monsterAOE(m, Intent{MonsterID: m.ID, Type: IntentAOE, TargetIDs: []string{a.ID}})
	if tank.HP != 1 || tank.Down {
		t.Errorf("tank hp %d down %v", tank.HP, tank.Down)
	}
}

func TestMonsterSingle_UnyieldingBeatsProtect(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, tankStats())
	other := addPlayer(t, e, "T2", skill.RoleTank, tankStats())
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 10, Def: 1, Agi: 1})
	tank.TankingAll = true
	a.Redirect = &Redirect{TankID: other.ID, Mode: RedirectFull, DefenseBonus: 5}

	seq.Push(dice.Face(2, 6), dice.Face(1, 2))
	e.monsterSingle(m, Intent{MonsterID: m.ID, Type: IntentSingle, TargetIDs: []string{a.ID}})
	if want := tank.MaxHP - 30; tank.HP != want {
		t.Errorf("tank hp = %d, want %d", tank.HP, want)
	}
	if other.HP != other.MaxHP || a.HP != a.MaxHP {
		t.Error("hit did not go to the unyielding tank")
	}
}

func TestMonsterSingle_DownedTargetTakesNothingButFalls(t *testing.T) {
	e, seq := newTestEncounter(t)
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 20, Def: 1, Agi: 1})
	a.HP = 10

	seq.Push(dice.Face(6, 6), dice.Face(1, 2))
	e.monsterSingle(m, Intent{MonsterID: m.ID, Type: IntentSingle, TargetIDs: []string{a.ID}})
	if !a.Down || a.HP != 0 || a.DownCounter != downRounds {
		t.Errorf("player = hp %d down %v counter %d", a.HP, a.Down, a.DownCounter)
	}
}

func TestMonsterBleed_ProtectTakesDOT(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, tankStats())
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 10, Def: 1, Agi: 1})
	a.Redirect = &Redirect{TankID: tank.ID, Mode: RedirectFull, DefenseBonus: 5}

	seq.Push(dice.Face(2, 2))
	e.monsterBleed(m, Intent{MonsterID: m.ID, Type: IntentBleed, TargetIDs: []string{a.ID}})
	if want := tank.MaxHP - 20; tank.HP != want {
		t.Errorf("tank hp = %d, want %d", tank.HP, want)
	}
	if tank.Dots.Total(skill.KindBleed) != 20 || len(a.Dots) != 0 {
		t.Errorf("dots: tank %+v ally %+v", tank.Dots, a.Dots)
	}
}

func TestResolveMonsterActions_BuffAndDeadSkip(t *testing.T) {
	e, seq := newTestEncounter(t)
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, Stats{Atk: 10, Def: 1, Agi: 1})
	dead := addMonster(t, e, "Dead", 500, Stats{Atk: 20, Def: 1, Agi: 1})
	dead.Alive = false
	e.intents = []Intent{
		{MonsterID: m.ID, Type: IntentBuff, BuffStat: skill.StatAtk},
		{MonsterID: dead.ID, Type: IntentSingle, TargetIDs: []string{a.ID}},
	}

	seq.Push(dice.Face(3, 5))
	e.resolveMonsterActions()
	if EffectiveStat(m, skill.StatAtk) != 13 {
		t.Errorf("buffed atk = %d", EffectiveStat(m, skill.StatAtk))
	}
	if a.HP != a.MaxHP {
		t.Error("dead monster acted")
	}
	if seq.Used() != 1 {
		t.Errorf("draws = %d", seq.Used())
	}
}
