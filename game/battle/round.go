package battle

import (
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/game/skill"
)

// StartRound generates the monster intents and opens the PLAYER phase.
func (e *Encounter) StartRound() bool {
	if len(e.players) == 0 || len(e.monsters) == 0 {
		e.warnf("Add at least one player and one monster before starting.")
		return false
	}
	if !e.phase.Can(evStart) {
		e.warnf("Round %d is already in progress (%s).", e.round, e.Phase())
		return false
	}

	e.snap = nil
	e.logf(LogRound, "=== ROUND %d START ===", e.round)

	// ① revival countdown and queued bonuses
	for _, p := range e.players {
		e.startOfRound(p)
	}
	// ② one-round flags from last round
	for _, p := range e.players {
		p.clearRoundFlags()
	}
	// ③ intents
	intents, ok := e.chooseIntents()
	if !ok {
		e.warnf("No living monster or no active player: the round cannot proceed.")
		return false
	}
	e.intents = intents
	for _, in := range intents {
		e.logf(LogMonster, "Hint: %s", in.Text)
	}
	e.transition(evStart)
	e.logger.Debug("round started",
		zap.String("encounter", e.id), zap.Int("round", e.round), zap.Int("intents", len(intents)))
	return true
}

// ResolveRound runs the whole RESOLVE phase and leaves the encounter in
// HINT for the next round.
func (e *Encounter) ResolveRound() bool {
	if e.Phase() != PhasePlayer {
		e.warnf("Start the round before resolving it (now %s).", e.Phase())
		return false
	}
	active := e.activePlayers()
	if len(active) == 0 {
		e.warnf("No active player can act.")
		return false
	}

	e.snap = e.takeSnapshot()
	for _, p := range e.players {
		p.hpAtRoundStart = p.HP
	}
	for _, m := range e.monsters {
		m.hpAtRoundStart = m.HP
	}
	for _, p := range active {
		if _, ok := e.actions[p.ID]; !ok {
			a := Action{Type: ActAttack}
			if m := e.firstLivingMonster(); m != nil {
				a.Targets = []string{m.ID}
			}
			e.actions[p.ID] = a
		}
	}
	e.transition(evResolve)

	// ① defend bonuses land before anyone acts
	for _, p := range active {
		if e.actions[p.ID].Type == ActDefend {
			p.DefendBonus, _, _ = e.finalStat(p, skill.StatDef)
		}
	}

	// ② player actions
	e.logf(LogSection, "--- Player turn (%d) ---", len(active))
	for _, p := range e.turnMgr.Order(active) {
		e.resolvePlayerAction(p, e.actions[p.ID])
	}

	// ③ damage over time
	e.logf(LogSection, "--- Damage over time ---")
	e.tickDots()

	// ④ monsters
	e.logf(LogSection, "--- Monster turn ---")
	e.resolveMonsterActions()

	// ⑤ settle
	for _, p := range e.players {
		e.setDownIfNeeded(p)
	}
	e.decay()
	e.summarize()

	e.round++
	e.actions = make(map[string]Action)
	e.intents = nil
	e.transition(evSettle)
	e.resolves++
	return true
}

// Undo restores the state saved when the last resolve began. The snapshot
// is used up.
func (e *Encounter) Undo() bool {
	if e.snap == nil {
		e.warnf("Nothing to undo.")
		return false
	}
	s := e.snap
	e.snap = nil
	e.restore(s)
	e.logf(LogInfo, "Round %d restored to before it resolved.", e.round)
	return true
}

// CanUndo reports whether a snapshot is held.
func (e *Encounter) CanUndo() bool { return e.snap != nil }

// Reset returns every entity to full health and clears all combat state.
func (e *Encounter) Reset() {
	e.round = 1
	e.phase.SetState(string(PhaseHint))
	e.intents = nil
	e.actions = make(map[string]Action)
	e.snap = nil
	e.last = RoundResult{}
	for _, p := range e.players {
		p.clearCombatState()
		p.HP = p.MaxHP
		p.Down = false
		p.DownCounter = 0
		p.UltimateUsed = false
	}
	for _, m := range e.monsters {
		m.clearCombatState()
		m.HP = m.MaxHP
		m.Alive = true
	}
	e.logf(LogRound, "=== ENCOUNTER RESET ===")
}

// ClearLog empties the log.
func (e *Encounter) ClearLog() {
	e.log = nil
	e.logf(LogGM, "[GM] Log cleared.")
}
