package battle

import (
	"time"

	"github.com/kasuganosora/raidtable/game/skill"
)

// LogKind tags a log line for the view layer.
type LogKind string

const (
	LogRound   LogKind = "round"
	LogSection LogKind = "section"
	LogInfo    LogKind = "info"
	LogAction  LogKind = "action"
	LogSkill   LogKind = "skill"
	LogCrit    LogKind = "crit"
	LogHeal    LogKind = "heal"
	LogDot     LogKind = "dot"
	LogMonster LogKind = "monster"
	LogWarn    LogKind = "warn"
	LogSummary LogKind = "summary"
	LogGM      LogKind = "gm"
)

// LogEntry is one append-only log line.
type LogEntry struct {
	Seq   int       `json:"seq"`
	Round int       `json:"round"`
	Kind  LogKind   `json:"kind"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// PlayerView is a player plus its computed values.
type PlayerView struct {
	*Player
	Effective  Stats `json:"effective"`
	CritChance int   `json:"crit_chance"`
}

// MonsterView is a monster plus its computed values.
type MonsterView struct {
	*Monster
	Effective  Stats `json:"effective"`
	CritChance int   `json:"crit_chance"`
}

// View is the queryable state of an encounter. It holds copies, so callers
// may keep it after the encounter moves on.
type View struct {
	ID       string            `json:"id"`
	Round    int               `json:"round"`
	Phase    Phase             `json:"phase"`
	Players  []PlayerView      `json:"players"`
	Monsters []MonsterView     `json:"monsters"`
	Intents  []Intent          `json:"intents"`
	Actions  map[string]Action `json:"actions"`
	CanUndo  bool              `json:"can_undo"`
	LogSize  int               `json:"log_size"`
}

func effectiveStats(c Combatant) Stats {
	return Stats{
		Vit: EffectiveStat(c, skill.StatVit),
		Atk: EffectiveStat(c, skill.StatAtk),
		Def: EffectiveStat(c, skill.StatDef),
		Agi: EffectiveStat(c, skill.StatAgi),
	}
}

// View returns a copy of the current state.
func (e *Encounter) View() View {
	v := View{
		ID:      e.id,
		Round:   e.round,
		Phase:   e.Phase(),
		Intents: append([]Intent(nil), e.intents...),
		Actions: make(map[string]Action, len(e.actions)),
		CanUndo: e.snap != nil,
		LogSize: len(e.log),
	}
	for _, p := range e.players {
		c := p.clone()
		v.Players = append(v.Players, PlayerView{Player: c, Effective: effectiveStats(c), CritChance: CritChance(c)})
	}
	for _, m := range e.monsters {
		c := m.clone()
		v.Monsters = append(v.Monsters, MonsterView{Monster: c, Effective: effectiveStats(c), CritChance: CritChance(c)})
	}
	for id, a := range e.actions {
		v.Actions[id] = a.clone()
	}
	return v
}

// Log returns the log lines with Seq greater than since.
func (e *Encounter) Log(since int) []LogEntry {
	i := len(e.log)
	for i > 0 && e.log[i-1].Seq > since {
		i--
	}
	return append([]LogEntry(nil), e.log[i:]...)
}
