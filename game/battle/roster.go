package battle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kasuganosora/raidtable/game/skill"
)

const (
	playerStatMin  = 1
	playerStatMax  = 12
	monsterStatMin = 1
	monsterStatMax = 20
	monsterHPMin   = 50
	monsterHPMax   = 5000
)

// PlayerSpec describes a player to add.
type PlayerSpec struct {
	Name     string      `json:"name"`
	Role     skill.Role  `json:"role"`
	Stats    Stats       `json:"stats"`
	Actives  []skill.Key `json:"actives"`
	Ultimate skill.Key   `json:"ultimate"`
}

// MonsterSpec describes a monster to add. A nil Pattern takes DefaultPattern.
type MonsterSpec struct {
	Name    string   `json:"name"`
	HPBase  int      `json:"hp_base"`
	Stats   Stats    `json:"stats"`
	Pattern *Pattern `json:"pattern,omitempty"`
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AddPlayer validates spec and adds the player. It returns the new id, or
// false with a logged warning when the spec is rejected.
func (e *Encounter) AddPlayer(spec PlayerSpec) (string, bool) {
	if len(e.players) >= e.rules.MaxPlayers {
		e.warnf("Player limit reached (%d).", e.rules.MaxPlayers)
		return "", false
	}
	role, ok := skill.ParseRole(string(spec.Role))
	if !ok {
		e.warnf("Unknown role %q.", spec.Role)
		return "", false
	}
	if len(spec.Actives) != 2 {
		e.warnf("A player needs exactly 2 active skills, got %d.", len(spec.Actives))
		return "", false
	}
	var actives [2]skill.Key
	for i, k := range spec.Actives {
		s, ok := skill.Lookup(k)
		if !ok || s.Role != role || s.Ultimate {
			e.warnf("%q is not a %s active skill.", k, role)
			return "", false
		}
		actives[i] = s.Key
	}
	ult, ok := skill.Lookup(spec.Ultimate)
	if !ok || ult.Role != role || !ult.Ultimate {
		e.warnf("%q is not a %s ultimate.", spec.Ultimate, role)
		return "", false
	}
	if actives[0] == actives[1] {
		e.warnf("Both active slots hold %s.", actives[0])
	}

	stats := spec.Stats.clamped(playerStatMin, playerStatMax)
	if sum := stats.Sum(); sum != e.rules.StatBudget {
		e.warnf("Stat total is %d (expected %d).", sum, e.rules.StatBudget)
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = fmt.Sprintf("Player%d", len(e.players)+1)
	}
	maxHP := playerMaxHP(stats.Vit)
	p := &Player{
		Unit: Unit{
			ID:    newID("P_"),
			Name:  name,
			Base:  stats,
			HP:    maxHP,
			MaxHP: maxHP,
		},
		Role:     role,
		Actives:  actives,
		Ultimate: ult.Key,
	}
	e.players = append(e.players, p)
	e.logf(LogInfo, "%s joined as %s (HP %d, VIT %d ATK %d DEF %d AGI %d).",
		p.Name, role, maxHP, stats.Vit, stats.Atk, stats.Def, stats.Agi)
	return p.ID, true
}

// RemovePlayer removes a player and any action it submitted.
func (e *Encounter) RemovePlayer(id string) bool {
	for i, p := range e.players {
		if p.ID == id {
			e.players = append(e.players[:i], e.players[i+1:]...)
			delete(e.actions, id)
			e.logf(LogInfo, "%s left the table.", p.Name)
			return true
		}
	}
	e.warnf("No player %q.", id)
	return false
}

// AddMonster validates spec and adds the monster.
func (e *Encounter) AddMonster(spec MonsterSpec) (string, bool) {
	if len(e.monsters) >= e.rules.MaxMonsters {
		e.warnf("Monster limit reached (%d).", e.rules.MaxMonsters)
		return "", false
	}
	pattern := DefaultPattern
	if spec.Pattern != nil {
		pattern = Pattern{
			Single: max(0, spec.Pattern.Single),
			AOE:    max(0, spec.Pattern.AOE),
			Bleed:  max(0, spec.Pattern.Bleed),
			Buff:   max(0, spec.Pattern.Buff),
		}
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = fmt.Sprintf("MONSTER%d", len(e.monsters)+1)
	}
	hp := clamp(spec.HPBase, monsterHPMin, monsterHPMax)
	stats := spec.Stats.clamped(monsterStatMin, monsterStatMax)
	m := &Monster{
		Unit: Unit{
			ID:    newID("M_"),
			Name:  name,
			Base:  stats,
			HP:    hp,
			MaxHP: hp,
		},
		Alive:   true,
		Pattern: pattern,
	}
	e.monsters = append(e.monsters, m)
	e.logf(LogInfo, "%s appears (HP %d, ATK %d DEF %d AGI %d; pattern %d/%d/%d/%d).",
		m.Name, hp, stats.Atk, stats.Def, stats.Agi, pattern.Single, pattern.AOE, pattern.Bleed, pattern.Buff)
	return m.ID, true
}

// RemoveMonster removes a monster.
func (e *Encounter) RemoveMonster(id string) bool {
	for i, m := range e.monsters {
		if m.ID == id {
			e.monsters = append(e.monsters[:i], e.monsters[i+1:]...)
			e.logf(LogInfo, "%s removed.", m.Name)
			return true
		}
	}
	e.warnf("No monster %q.", id)
	return false
}

// ClearRoster removes every player and monster.
func (e *Encounter) ClearRoster() {
	e.players = nil
	e.monsters = nil
	e.intents = nil
	e.actions = make(map[string]Action)
	e.logf(LogInfo, "Roster cleared.")
}
