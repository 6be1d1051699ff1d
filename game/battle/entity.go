package battle

import "github.com/kasuganosora/raidtable/game/skill"

// Stats is a four-stat bundle used for base stats and temp modifiers.
type Stats struct {
	Vit int `json:"vit" yaml:"vit"`
	Atk int `json:"atk" yaml:"atk"`
	Def int `json:"def" yaml:"def"`
	Agi int `json:"agi" yaml:"agi"`
}

// Get returns the value of st.
func (s Stats) Get(st skill.Stat) int {
	switch st {
	case skill.StatVit:
		return s.Vit
	case skill.StatAtk:
		return s.Atk
	case skill.StatDef:
		return s.Def
	case skill.StatAgi:
		return s.Agi
	}
	return 0
}

// Add adds delta to st.
func (s *Stats) Add(st skill.Stat, delta int) {
	s.Set(st, s.Get(st)+delta)
}

// Set overwrites st.
func (s *Stats) Set(st skill.Stat, v int) {
	switch st {
	case skill.StatVit:
		s.Vit = v
	case skill.StatAtk:
		s.Atk = v
	case skill.StatDef:
		s.Def = v
	case skill.StatAgi:
		s.Agi = v
	}
}

// Sum returns the total of all four stats.
func (s Stats) Sum() int { return s.Vit + s.Atk + s.Def + s.Agi }

func (s Stats) clamped(lo, hi int) Stats {
	return Stats{
		Vit: clamp(s.Vit, lo, hi),
		Atk: clamp(s.Atk, lo, hi),
		Def: clamp(s.Def, lo, hi),
		Agi: clamp(s.Agi, lo, hi),
	}
}

// Unit holds the state shared by players and monsters.
type Unit struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Base    Stats         `json:"base"`
	Temp    Stats         `json:"temp"`
	HP      int           `json:"hp"`
	MaxHP   int           `json:"max_hp"`
	Shields skill.Shields `json:"shields"`
	Debuffs skill.Effects `json:"debuffs"`
	Dots    skill.Effects `json:"dots"`

	hpAtRoundStart int
}

func (u *Unit) unit() *Unit { return u }

func (u Unit) cloneUnit() Unit {
	u.Shields = u.Shields.Clone()
	u.Debuffs = u.Debuffs.Clone()
	u.Dots = u.Dots.Clone()
	return u
}

// Combatant is either a *Player or a *Monster.
type Combatant interface {
	unit() *Unit
	IsMonster() bool
}

// RedirectMode describes how much of an ally's incoming damage is diverted.
type RedirectMode string

// RedirectFull diverts everything.
const RedirectFull RedirectMode = "FULL"

// Redirect diverts damage aimed at the bearer to a tank for one round.
type Redirect struct {
	TankID       string       `json:"tank_id"`
	Mode         RedirectMode `json:"mode"`
	DefenseBonus int          `json:"defense_bonus"`
	ExpiresRound int          `json:"expires_round"`
}

// Endurance accumulates damage taken until it is reflected.
type Endurance struct {
	Accum     int `json:"accum"`
	TurnsLeft int `json:"turns_left"`
}

// Stance is the fighting-spirit stance.
type Stance struct {
	TurnsLeft int `json:"turns_left"`
}

// Boost is a stat bonus queued for the bearer's next round.
type Boost struct {
	Stat     skill.Stat `json:"stat"`
	Value    int        `json:"value"`
	SourceID string     `json:"source_id"`
}

// Player is a party member.
type Player struct {
	Unit
	Role         skill.Role   `json:"role"`
	Actives      [2]skill.Key `json:"actives"`
	Ultimate     skill.Key    `json:"ultimate"`
	UltimateUsed bool         `json:"ultimate_used"`
	Down         bool         `json:"down"`
	DownCounter  int          `json:"down_counter"`
	LastActive   skill.Key    `json:"last_active,omitempty"`

	// Per-round flags.
	DefendBonus   int        `json:"defend_bonus"`
	MinHPFloor    bool       `json:"min_hp_floor"`
	TankingAll    bool       `json:"tanking_all"`
	Redirect      *Redirect  `json:"redirect,omitempty"`
	Endure        *Endurance `json:"endure,omitempty"`
	Stance        *Stance    `json:"stance,omitempty"`
	PendingAtk    int        `json:"pending_atk"`
	PendingBoosts []Boost    `json:"pending_boosts,omitempty"`
	HasAggro      bool       `json:"has_aggro"`
}

// IsMonster is false for players.
func (*Player) IsMonster() bool { return false }

// Active reports whether the player can act.
func (p *Player) Active() bool { return !p.Down }

func (p *Player) hasActive(key skill.Key) bool {
	return p.Actives[0] == key || p.Actives[1] == key
}

func (p *Player) clone() *Player {
	c := *p
	c.Unit = p.Unit.cloneUnit()
	if p.Redirect != nil {
		r := *p.Redirect
		c.Redirect = &r
	}
	if p.Endure != nil {
		e := *p.Endure
		c.Endure = &e
	}
	if p.Stance != nil {
		s := *p.Stance
		c.Stance = &s
	}
	if p.PendingBoosts != nil {
		c.PendingBoosts = append([]Boost(nil), p.PendingBoosts...)
	}
	return &c
}

// SelfBuff is a monster's timed stat buff.
type SelfBuff struct {
	Stat  skill.Stat `json:"stat"`
	Value int        `json:"value"`
	Turns int        `json:"turns"`
}

// Pattern weights a monster's intent categories. Weights need not sum to 100.
type Pattern struct {
	Single int `json:"single" yaml:"single"`
	AOE    int `json:"aoe" yaml:"aoe"`
	Bleed  int `json:"bleed" yaml:"bleed"`
	Buff   int `json:"buff" yaml:"buff"`
}

// DefaultPattern is used when a monster is created without one.
var DefaultPattern = Pattern{Single: 25, AOE: 25, Bleed: 25, Buff: 25}

// Total is the sum of all weights.
func (p Pattern) Total() int { return p.Single + p.AOE + p.Bleed + p.Buff }

// Monster is an enemy.
type Monster struct {
	Unit
	Alive   bool       `json:"alive"`
	Buffs   []SelfBuff `json:"buffs,omitempty"`
	Pattern Pattern    `json:"pattern"`
}

// IsMonster is true for monsters.
func (*Monster) IsMonster() bool { return true }

func (m *Monster) clone() *Monster {
	c := *m
	c.Unit = m.Unit.cloneUnit()
	if m.Buffs != nil {
		c.Buffs = append([]SelfBuff(nil), m.Buffs...)
	}
	return &c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
