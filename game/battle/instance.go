package battle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/game/dice"
)

// Phase is the round phase.
type Phase string

const (
	PhaseHint    Phase = "HINT"
	PhasePlayer  Phase = "PLAYER"
	PhaseResolve Phase = "RESOLVE"
)

const (
	evStart   = "start"
	evResolve = "resolve"
	evSettle  = "settle"
)

// Rules are the table limits.
type Rules struct {
	MaxPlayers  int
	MaxMonsters int
	StatBudget  int
}

// DefaultRules are the standard table limits.
var DefaultRules = Rules{MaxPlayers: 8, MaxMonsters: 4, StatBudget: 28}

// Config configures an Encounter.
type Config struct {
	ID      string           // "" = random
	Rules   Rules            // zero fields take DefaultRules
	RNG     dice.Source      // injectable for testing
	Seed    int64            // used when RNG is nil; 0 = time seed
	Logger  *zap.Logger      // nil = no-op
	TurnMgr TurnManager      // nil = RosterOrder
	Sink    func(LogEntry)   // called for every log line; must not block
	Now     func() time.Time // nil = time.Now
}

// Encounter is one table: players, monsters and the round state. It is not
// safe for concurrent use; callers serialise access.
type Encounter struct {
	id       string
	round    int
	phase    *fsm.FSM
	players  []*Player
	monsters []*Monster
	intents  []Intent
	actions  map[string]Action
	log      []LogEntry
	seq      int
	snap     *snapshot
	last     RoundResult
	resolves uint64

	rules   Rules
	src     dice.Source
	logger  *zap.Logger
	turnMgr TurnManager
	sink    func(LogEntry)
	now     func() time.Time
}

// New creates an empty encounter in round 1, phase HINT.
func New(cfg Config) *Encounter {
	e := &Encounter{
		id:      cfg.ID,
		round:   1,
		actions: make(map[string]Action),
		rules:   cfg.Rules,
		src:     cfg.RNG,
		logger:  cfg.Logger,
		turnMgr: cfg.TurnMgr,
		sink:    cfg.Sink,
		now:     cfg.Now,
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	if e.rules.MaxPlayers <= 0 {
		e.rules.MaxPlayers = DefaultRules.MaxPlayers
	}
	if e.rules.MaxMonsters <= 0 {
		e.rules.MaxMonsters = DefaultRules.MaxMonsters
	}
	if e.rules.StatBudget <= 0 {
		e.rules.StatBudget = DefaultRules.StatBudget
	}
	if e.src == nil {
		e.src = dice.NewSource(cfg.Seed)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.turnMgr == nil {
		e.turnMgr = RosterOrder{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.phase = fsm.NewFSM(
		string(PhaseHint),
		fsm.Events{
			{Name: evStart, Src: []string{string(PhaseHint), string(PhaseResolve)}, Dst: string(PhasePlayer)},
			{Name: evResolve, Src: []string{string(PhasePlayer)}, Dst: string(PhaseResolve)},
			{Name: evSettle, Src: []string{string(PhaseResolve)}, Dst: string(PhaseHint)},
		},
		fsm.Callbacks{},
	)
	return e
}

// ID returns the encounter id.
func (e *Encounter) ID() string { return e.id }

// Round returns the current round number.
func (e *Encounter) Round() int { return e.round }

// Phase returns the current phase.
func (e *Encounter) Phase() Phase { return Phase(e.phase.Current()) }

// Rules returns the limits in force.
func (e *Encounter) Rules() Rules { return e.rules }

// LastSeq returns the sequence number of the newest log line. It never
// goes backwards, even across Undo and ClearLog.
func (e *Encounter) LastSeq() int { return e.seq }

// Resolves counts completed resolves. Undo and Reset leave it alone.
func (e *Encounter) Resolves() uint64 { return e.resolves }

func (e *Encounter) transition(event string) {
	if err := e.phase.Event(context.Background(), event); err != nil {
		e.logger.Warn("phase transition refused",
			zap.String("encounter", e.id), zap.String("event", event), zap.Error(err))
	}
}

// ---- Log ----

func (e *Encounter) logf(kind LogKind, format string, args ...any) {
	e.seq++
	entry := LogEntry{
		Seq:   e.seq,
		Round: e.round,
		Kind:  kind,
		Text:  fmt.Sprintf(format, args...),
		At:    e.now(),
	}
	e.log = append(e.log, entry)
	if e.sink != nil {
		e.sink(entry)
	}
}

func (e *Encounter) warnf(format string, args ...any) {
	e.logf(LogWarn, format, args...)
	e.logger.Debug("encounter warning",
		zap.String("encounter", e.id), zap.Int("round", e.round), zap.String("text", fmt.Sprintf(format, args...)))
}

// ---- Lookups ----

func (e *Encounter) player(id string) *Player {
	if id == "" {
		return nil
	}
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Encounter) monster(id string) *Monster {
	if id == "" {
		return nil
	}
	for _, m := range e.monsters {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (e *Encounter) activePlayers() []*Player {
	var out []*Player
	for _, p := range e.players {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

func (e *Encounter) livingMonsters() []*Monster {
	var out []*Monster
	for _, m := range e.monsters {
		if m.Alive {
			out = append(out, m)
		}
	}
	return out
}

func (e *Encounter) firstLivingMonster() *Monster {
	for _, m := range e.monsters {
		if m.Alive {
			return m
		}
	}
	return nil
}

func (e *Encounter) randomLivingMonster() *Monster {
	alive := e.livingMonsters()
	if len(alive) == 0 {
		return nil
	}
	return alive[dice.Pick(e.src, len(alive))]
}

func (e *Encounter) randomActivePlayer() *Player {
	alive := e.activePlayers()
	if len(alive) == 0 {
		return nil
	}
	return alive[dice.Pick(e.src, len(alive))]
}

// tankingAll returns the first active player holding Unyielding.
func (e *Encounter) tankingAll() *Player {
	for _, p := range e.players {
		if p.TankingAll && p.Active() {
			return p
		}
	}
	return nil
}

// protector returns the active tank a FULL redirect on p points at.
func (e *Encounter) protector(p *Player) *Player {
	if p.Redirect == nil || p.Redirect.Mode != RedirectFull {
		return nil
	}
	tank := e.player(p.Redirect.TankID)
	if tank == nil || !tank.Active() {
		return nil
	}
	return tank
}
