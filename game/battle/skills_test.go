package battle

import (
	"strings"
	"testing"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

func TestProtect_AOEHitLandsOnTank(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "Tank", skill.RoleTank, Stats{Vit: 6, Atk: 6, Def: 10, Agi: 6})
	ally := addPlayer(t, e, "Ally", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "Ogre", 500, Stats{Atk: 8, Def: 1, Agi: 1})

	seq.Push(dice.Face(1, 6), dice.Miss)
	if !e.protect(tank, Action{Type: ActActive, Skill: skill.Protect, Targets: []string{ally.ID}}) {
		t.Fatal("protect rejected")
	}
	if ally.Redirect == nil || ally.Redirect.DefenseBonus != 13 || ally.Redirect.TankID != tank.ID {
		t.Fatalf("redirect = %+v, want bonus floor(10 x 1.3 x 1)", ally.Redirect)
	}

	seq.Push(dice.Face(3, 6))
	before := seq.Used()
	e.monsterAOE(m, Intent{MonsterID: m.ID, Type: IntentAOE, TargetIDs: []string{ally.ID}})

	if ally.HP != ally.MaxHP {
		t.Errorf("ally hp = %d, want untouched", ally.HP)
	}
	if want := tank.MaxHP - (24 - 13); tank.HP != want {
		t.Errorf("tank hp = %d, want %d", tank.HP, want)
	}
	if seq.Used() != before+1 {
		t.Errorf("protected hit rolled defense (%d draws)", seq.Used()-before)
	}
}

func TestProtect_RejectsSelfAndFallsBack(t *testing.T) {
	e, _ := newTestEncounter(t)
	tank := addPlayer(t, e, "Tank", skill.RoleTank, flat(7))
	m := addMonster(t, e, "M", 500, flat(1))

	e.resolvePlayerAction(tank, Action{Type: ActActive, Skill: skill.Protect, Targets: []string{tank.ID}})
	if tank.Redirect != nil {
		t.Error("tank protected itself")
	}
	if tank.LastActive != "" {
		t.Errorf("rejected skill recorded as last active: %s", tank.LastActive)
	}
	if m.HP == 500 {
		t.Error("no basic attack was substituted")
	}
}

func TestGuard_ShieldsDistinctAllies(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "Tank", skill.RoleTank, Stats{Vit: 6, Atk: 6, Def: 10, Agi: 6})
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	b := addPlayer(t, e, "B", skill.RoleDPS, flat(7))
	seq.Push(dice.Face(5, 6), dice.Hit)

	e.guard(tank, Action{Targets: []string{a.ID, a.ID}})
	if len(a.Shields) != 1 || a.Shields[0].Value != 80 {
		t.Errorf("shields = %+v, want one crit shield floor(50 x 0.8) x 2", a.Shields)
	}
	if len(b.Shields) != 0 || len(tank.Shields) != 0 {
		t.Error("guard leaked to other players")
	}
}

func TestUltimate_OnlyOnce(t *testing.T) {
	e, _ := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 5000, flat(1))

	e.resolvePlayerAction(p, Action{Type: ActUltimate})
	if !p.UltimateUsed {
		t.Fatal("ultimate not marked used")
	}
	hp := m.HP
	mark := len(e.log)
	e.resolvePlayerAction(p, Action{Type: ActUltimate})
	if m.HP >= hp {
		t.Error("no basic attack on the second ultimate")
	}
	if len(logsMentioning(logsOfKind(e.log[mark:], LogWarn), "already spent")) != 1 {
		t.Errorf("missing warning: %+v", e.log[mark:])
	}
}

func TestReincarnation_ResetsUltimate(t *testing.T) {
	e, _ := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, flat(7))
	d := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	addMonster(t, e, "M", 5000, flat(1))
	d.UltimateUsed = true

	e.resolvePlayerAction(s, Action{Type: ActUltimate, Targets: []string{d.ID}})
	if d.UltimateUsed {
		t.Error("ally ultimate still used")
	}
	if !s.UltimateUsed {
		t.Error("caster ultimate not spent")
	}
}

func TestActive_NoImmediateRepeat(t *testing.T) {
	e, _ := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	addMonster(t, e, "M", 5000, flat(1))

	e.resolvePlayerAction(p, Action{Type: ActActive, Skill: skill.Madness})
	if p.PendingAtk != 3 || p.LastActive != skill.Madness {
		t.Fatalf("madness not applied: pending %d last %s", p.PendingAtk, p.LastActive)
	}
	e.resolvePlayerAction(p, Action{Type: ActActive, Skill: skill.Madness})
	if p.PendingAtk != 3 {
		t.Errorf("repeat was applied: pending %d", p.PendingAtk)
	}
	if p.LastActive != "" {
		t.Errorf("last active = %s after fallback", p.LastActive)
	}
	e.resolvePlayerAction(p, Action{Type: ActActive, Skill: skill.Madness})
	if p.PendingAtk != 6 {
		t.Errorf("madness should stack after a break: pending %d", p.PendingAtk)
	}
}

func TestActive_UnknownToPlayer(t *testing.T) {
	e, _ := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	addMonster(t, e, "M", 5000, flat(1))
	e.resolvePlayerAction(p, Action{Type: ActActive, Skill: skill.Massacre})
	if !strings.Contains(logsOfKind(e.log, LogWarn)[0].Text, "does not know") {
		t.Errorf("log = %+v", e.log)
	}
}

func TestPenance_ReducesMonsterAttackAndDoesNotStack(t *testing.T) {
	e, seq := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, Stats{Vit: 6, Atk: 6, Def: 1, Agi: 10})
	m := addMonster(t, e, "M", 500, Stats{Atk: 10, Def: 1, Agi: 1})

	seq.Push(dice.Face(3, 6), dice.Miss)
	e.penance(s, Action{Targets: []string{m.ID}})
	if got := m.Debuffs.Total(skill.KindPenance); got != 15 {
		t.Fatalf("penance = %d, want floor(10 x 3 x 0.5)", got)
	}
	seq.Push(dice.Face(6, 6), dice.Miss)
	e.penance(s, Action{Targets: []string{m.ID}})
	if got := m.Debuffs.Total(skill.KindPenance); got != 15 {
		t.Errorf("second penance stacked: %d", got)
	}
	if lastLog(e).Kind != LogWarn {
		t.Errorf("no rejection warning: %+v", lastLog(e))
	}

	// single attack: 10 x 2 x 2 = 40, minus 15
	seq.Push(dice.Face(2, 6), dice.Face(1, 2))
	e.monsterSingle(m, Intent{MonsterID: m.ID, Type: IntentSingle, TargetIDs: []string{s.ID}})
	if want := s.MaxHP - (25 - 1); s.HP != want {
		t.Errorf("hp = %d, want %d", s.HP, want)
	}
}

func TestBloodfight_MisfiresWhenCasterFalls(t *testing.T) {
	e, _ := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	m := addMonster(t, e, "M", 500, flat(1))
	p.HP = 1

	if !e.bloodfight(p, Action{}) {
		t.Fatal("bloodfight treated as invalid")
	}
	if !p.Down || m.HP != 500 {
		t.Errorf("down=%v monster hp=%d", p.Down, m.HP)
	}
}

func TestDevotion_HitsAllThenFalls(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, Stats{Vit: 6, Atk: 6, Def: 10, Agi: 6})
	m1 := addMonster(t, e, "M1", 500, Stats{Atk: 1, Def: 2, Agi: 1})
	m2 := addMonster(t, e, "M2", 500, Stats{Atk: 1, Def: 2, Agi: 1})
	seq.Push(dice.Face(4, 6), dice.Face(1, 5), dice.Face(5, 5))

	e.devotion(tank)
	if m1.HP != 500-(80-2) || m2.HP != 500-(80-10) {
		t.Errorf("hp = %d / %d", m1.HP, m2.HP)
	}
	if !tank.Down || tank.HP != 0 {
		t.Error("devoted tank still standing")
	}
}

func TestMercy_RollsTwice(t *testing.T) {
	e, seq := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, Stats{Vit: 5, Atk: 10, Def: 5, Agi: 8})
	m := addMonster(t, e, "M", 1000, Stats{Atk: 1, Def: 1, Agi: 1})
	seq.Push(dice.Face(2, 6), dice.Face(3, 6), dice.Miss, dice.Face(1, 5))

	e.mercy(p, Action{Targets: []string{m.ID}})
	// (10 x 2 + 10 x 3) x 2.5 = 125, minus def 1
	if m.HP != 1000-124 {
		t.Errorf("hp = %d, want %d", m.HP, 1000-124)
	}
}

func TestFightingSpirit_FixedHitNeverCrits(t *testing.T) {
	e, seq := newTestEncounter(t)
	p := addPlayer(t, e, "T", skill.RoleTank, Stats{Vit: 5, Atk: 5, Def: 12, Agi: 6})
	m := addMonster(t, e, "M", 1000, Stats{Atk: 1, Def: 20, Agi: 1})
	seq.Push(dice.Hit)

	e.fightingSpirit(p, Action{Targets: []string{m.ID}})
	if m.HP != 950 {
		t.Errorf("hp = %d, want 950", m.HP)
	}
	if EffectiveStat(p, skill.StatDef) != 9 {
		t.Errorf("stance penalty missing")
	}
}

func TestEncourageAndPurify(t *testing.T) {
	e, _ := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, flat(7))
	d := addPlayer(t, e, "D", skill.RoleDPS, flat(7))

	e.encourage(s, Action{Targets: []string{d.ID}, Stat: skill.StatAgi})
	if len(d.PendingBoosts) != 1 || d.PendingBoosts[0].Stat != skill.StatAgi || d.PendingBoosts[0].Value != 3 {
		t.Fatalf("boosts = %+v", d.PendingBoosts)
	}

	d.Dots = skill.Effects{{Kind: skill.KindBleed, Value: 4, Turns: 2}}
	d.Debuffs = skill.Effects{{Kind: skill.KindMadnessAtk, Value: 3, Turns: 1}}
	e.purify(s, Action{Targets: []string{d.ID}})
	if len(d.Dots) != 0 {
		t.Error("dots survived purify")
	}
	if !d.Debuffs.Has(skill.KindMadnessAtk) {
		t.Error("purify removed a bonus marker")
	}
}

func TestRest_RaisesEveryone(t *testing.T) {
	e, _ := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, flat(7))
	d := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	d.HP, d.Down, d.DownCounter, d.LastActive = 0, true, 2, skill.Madness
	s.HP = 3

	e.rest(s)
	for _, p := range []*Player{s, d} {
		if p.Down || p.HP != p.MaxHP || p.LastActive != "" {
			t.Errorf("%s: %+v", p.Name, p)
		}
	}
}

func TestCharge_RollsTwiceAndSkipsDefense(t *testing.T) {
	e, seq := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, Stats{Vit: 5, Atk: 10, Def: 5, Agi: 8})
	m := addMonster(t, e, "M", 1000, Stats{Atk: 1, Def: 20, Agi: 1})
	seq.Push(dice.Face(3, 6), dice.Face(4, 6), dice.Miss)

	if !e.charge(p, Action{Targets: []string{m.ID}}) {
		t.Fatal("charge rejected")
	}
	// (10 x 3 + 10 x 4) x 2 = 140, def 20 never rolled
	if m.HP != 1000-140 {
		t.Errorf("hp = %d, want %d", m.HP, 1000-140)
	}
	if seq.Used() != 3 {
		t.Errorf("draws = %d, want 3", seq.Used())
	}
}

func TestBless_SharedRollAndCrit(t *testing.T) {
	e, seq := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, Stats{Vit: 6, Atk: 6, Def: 6, Agi: 10})
	a := addPlayer(t, e, "A", skill.RoleDPS, flat(7))
	b := addPlayer(t, e, "B", skill.RoleDPS, flat(7))
	a.HP, b.HP = 100, 200
	seq.Push(dice.Face(3, 6), dice.Hit)

	if !e.bless(s, Action{Targets: []string{a.ID, b.ID}}) {
		t.Fatal("bless rejected")
	}
	// 10 x 3 = 30, crit 60 for each ally
	if a.HP != 160 {
		t.Errorf("a hp = %d, want 160", a.HP)
	}
	if b.HP != b.MaxHP {
		t.Errorf("b hp = %d, want capped at %d", b.HP, b.MaxHP)
	}
	if s.HP != s.MaxHP {
		t.Errorf("caster hp changed: %d", s.HP)
	}
	if seq.Used() != 2 {
		t.Errorf("draws = %d, want one roll and one crit check", seq.Used())
	}
}

func TestRevive_HealsAndCritDoubles(t *testing.T) {
	e, seq := newTestEncounter(t)
	s := addPlayer(t, e, "S", skill.RoleSupport, Stats{Vit: 6, Atk: 6, Def: 6, Agi: 10})
	d := addPlayer(t, e, "D", skill.RoleDPS, flat(7))
	d.HP = 10

	seq.Push(dice.Face(4, 6), dice.Miss)
	e.revive(s, Action{Targets: []string{d.ID}})
	// 10 x 4 x 1.5 = 60
	if d.HP != 70 {
		t.Fatalf("hp = %d, want 70", d.HP)
	}

	seq.Push(dice.Face(4, 6), dice.Hit)
	e.revive(s, Action{Targets: []string{d.ID}})
	if d.HP != 190 {
		t.Errorf("hp = %d, want 190 after a 120 crit heal", d.HP)
	}

	d.HP, d.Down = 0, true
	if e.revive(s, Action{Targets: []string{d.ID}}) {
		t.Error("revive accepted a downed ally")
	}
}

func TestObsession_StacksAndTicksThreeRounds(t *testing.T) {
	e, seq := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, Stats{Vit: 5, Atk: 10, Def: 5, Agi: 8})
	m := addMonster(t, e, "M", 1000, Stats{Atk: 1, Def: 20, Agi: 1})
	seq.Push(dice.Face(5, 6), dice.Face(2, 6))

	e.obsession(p, Action{Targets: []string{m.ID}})
	e.obsession(p, Action{Targets: []string{m.ID}})
	if len(m.Dots) != 2 || m.Dots.Total(skill.KindObsession) != 40+16 {
		t.Fatalf("dots = %+v, want floor(50 x 0.8) and floor(20 x 0.8)", m.Dots)
	}
	if m.HP != 1000 {
		t.Errorf("obsession hit on cast: hp %d", m.HP)
	}

	for i := 1; i <= 3; i++ {
		e.tickDots()
		if want := 1000 - 56*i; m.HP != want {
			t.Errorf("tick %d: hp = %d, want %d", i, m.HP, want)
		}
	}
	if len(m.Dots) != 0 {
		t.Errorf("dots outlived three rounds: %+v", m.Dots)
	}
	if seq.Used() != 2 {
		t.Errorf("ticks rolled dice: %d draws", seq.Used())
	}
}

func TestEndure_StartsEmptyAndDrawsAggro(t *testing.T) {
	e, seq := newTestEncounter(t)
	tank := addPlayer(t, e, "T", skill.RoleTank, Stats{Vit: 6, Atk: 6, Def: 10, Agi: 6})

	if !e.endure(tank) {
		t.Fatal("endure rejected")
	}
	if tank.Endure == nil || tank.Endure.Accum != 0 || tank.Endure.TurnsLeft != 3 {
		t.Fatalf("endure = %+v, want empty for 3 rounds", tank.Endure)
	}
	if !tank.HasAggro {
		t.Error("endure did not draw aggro")
	}
	if seq.Used() != 0 {
		t.Errorf("endure rolled %d dice", seq.Used())
	}

	e.afterPlayerHit(tank, DamageResult{Dealt: 12}, false)
	if tank.Endure.Accum != 12 {
		t.Errorf("accum = %d, want 12", tank.Endure.Accum)
	}
}

func TestMassacre_HitsLivingMonsters(t *testing.T) {
	e, seq := newTestEncounter(t)
	p := addPlayer(t, e, "D", skill.RoleDPS, Stats{Vit: 5, Atk: 10, Def: 5, Agi: 8})
	m1 := addMonster(t, e, "M1", 500, Stats{Atk: 1, Def: 2, Agi: 1})
	m2 := addMonster(t, e, "M2", 500, Stats{Atk: 1, Def: 1, Agi: 1})
	m3 := addMonster(t, e, "M3", 500, Stats{Atk: 1, Def: 1, Agi: 1})
	m3.HP, m3.Alive = 0, false
	seq.Push(dice.Face(2, 6), dice.Face(3, 5), dice.Face(5, 5))

	e.massacre(p)
	// 10 x 2 x 1.5 = 30, then def 2 x 3 and def 1 x 5
	if m1.HP != 500-24 || m2.HP != 500-25 {
		t.Errorf("hp = %d / %d, want %d / %d", m1.HP, m2.HP, 500-24, 500-25)
	}
	if m3.HP != 0 || m3.Alive {
		t.Error("massacre touched a fallen monster")
	}
	if seq.Used() != 3 {
		t.Errorf("draws = %d, want 3 with no crit check", seq.Used())
	}
}
