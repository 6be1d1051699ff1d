package battle

import (
	"strings"
	"testing"
	"time"

	"github.com/kasuganosora/raidtable/game/dice"
	"github.com/kasuganosora/raidtable/game/skill"
)

func newTestEncounter(t *testing.T, draws ...float64) (*Encounter, *dice.Sequence) {
	t.Helper()
	seq := dice.NewSequence(draws...)
	e := New(Config{
		ID:  "test",
		RNG: seq,
		Now: func() time.Time { return time.Unix(0, 0) },
	})
	return e, seq
}

var roleKit = map[skill.Role]struct {
	actives []skill.Key
	ult     skill.Key
}{
	skill.RoleTank:    {[]skill.Key{skill.Guard, skill.Protect}, skill.Unyielding},
	skill.RoleDPS:     {[]skill.Key{skill.Madness, skill.Obsession}, skill.Mercy},
	skill.RoleSupport: {[]skill.Key{skill.Revive, skill.Penance}, skill.Reincarnation},
}

func addPlayer(t *testing.T, e *Encounter, name string, role skill.Role, stats Stats) *Player {
	t.Helper()
	kit := roleKit[role]
	id, ok := e.AddPlayer(PlayerSpec{Name: name, Role: role, Stats: stats, Actives: kit.actives, Ultimate: kit.ult})
	if !ok {
		t.Fatalf("AddPlayer(%s) rejected: %v", name, e.Log(0))
	}
	return e.player(id)
}

func addMonster(t *testing.T, e *Encounter, name string, hp int, stats Stats) *Monster {
	t.Helper()
	id, ok := e.AddMonster(MonsterSpec{Name: name, HPBase: hp, Stats: stats, Pattern: &Pattern{Single: 1}})
	if !ok {
		t.Fatalf("AddMonster(%s) rejected: %v", name, e.Log(0))
	}
	return e.monster(id)
}

func flat(v int) Stats { return Stats{Vit: v, Atk: v, Def: v, Agi: v} }

func lastLog(e *Encounter) LogEntry {
	if len(e.log) == 0 {
		return LogEntry{}
	}
	return e.log[len(e.log)-1]
}

func logsOfKind(entries []LogEntry, kind LogKind) []LogEntry {
	var out []LogEntry
	for _, l := range entries {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

func logsMentioning(entries []LogEntry, s string) []LogEntry {
	var out []LogEntry
	for _, l := range entries {
		if strings.Contains(l.Text, s) {
			out = append(out, l)
		}
	}
	return out
}
