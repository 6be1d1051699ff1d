package battle

// snapshot is a value copy of everything a resolve can change.
type snapshot struct {
	round    int
	phase    Phase
	players  []*Player
	monsters []*Monster
	intents  []Intent
	actions  map[string]Action
	log      []LogEntry
	last     RoundResult
}

func (e *Encounter) takeSnapshot() *snapshot {
	s := &snapshot{
		round:   e.round,
		phase:   e.Phase(),
		intents: cloneIntents(e.intents),
		actions: cloneActions(e.actions),
		log:     append([]LogEntry(nil), e.log...),
		last:    e.last,
	}
	for _, p := range e.players {
		s.players = append(s.players, p.clone())
	}
	for _, m := range e.monsters {
		s.monsters = append(s.monsters, m.clone())
	}
	return s
}

// restore puts s back. s is not reused afterwards, so its entities are
// adopted without another copy.
func (e *Encounter) restore(s *snapshot) {
	e.round = s.round
	e.phase.SetState(string(s.phase))
	e.players = s.players
	e.monsters = s.monsters
	e.intents = s.intents
	e.actions = s.actions
	e.log = s.log
	e.last = s.last
}

func cloneIntents(in []Intent) []Intent {
	if in == nil {
		return nil
	}
	out := make([]Intent, len(in))
	for i, x := range in {
		x.TargetIDs = append([]string(nil), x.TargetIDs...)
		out[i] = x
	}
	return out
}

func cloneActions(in map[string]Action) map[string]Action {
	out := make(map[string]Action, len(in))
	for k, a := range in {
		out[k] = a.clone()
	}
	return out
}
