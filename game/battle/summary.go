package battle

import "fmt"

// RoundResult is the outcome of the last resolved round.
type RoundResult struct {
	Round            int `json:"round"`
	DamageToMonsters int `json:"damage_to_monsters"`
	ActivePlayers    int `json:"active_players"`
	LivingMonsters   int `json:"living_monsters"`
}

// summarize logs each entity's hp change over the round.
func (e *Encounter) summarize() {
	e.logf(LogSection, "--- Round %d summary ---", e.round)
	for _, p := range e.players {
		line := fmt.Sprintf("%s: HP %d -> %d (%+d)", p.Name, p.hpAtRoundStart, p.HP, p.HP-p.hpAtRoundStart)
		if p.Down {
			line += " [DOWN]"
		}
		e.logf(LogSummary, "%s", line)
	}
	dealt := 0
	for _, m := range e.monsters {
		delta := m.HP - m.hpAtRoundStart
		dealt -= min(0, delta)
		line := fmt.Sprintf("%s: HP %d -> %d (%+d)", m.Name, m.hpAtRoundStart, m.HP, delta)
		if !m.Alive {
			line += " [DEAD]"
		}
		e.logf(LogSummary, "%s", line)
	}
	e.last = RoundResult{
		Round:            e.round,
		DamageToMonsters: dealt,
		ActivePlayers:    len(e.activePlayers()),
		LivingMonsters:   len(e.livingMonsters()),
	}
	e.logf(LogSummary, "Damage to monsters: %d. Active players %d/%d, living monsters %d/%d.",
		dealt, e.last.ActivePlayers, len(e.players), e.last.LivingMonsters, len(e.monsters))
}

// LastResult returns the outcome of the most recent resolve. It is zero
// before the first one.
func (e *Encounter) LastResult() RoundResult { return e.last }
