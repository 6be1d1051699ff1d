package skill

import (
	"sort"
	"strings"
)

// Stat names one of the four base stats.
type Stat string

const (
	StatVit Stat = "vit"
	StatAtk Stat = "atk"
	StatDef Stat = "def"
	StatAgi Stat = "agi"
)

// Stats lists every stat in display order.
var Stats = []Stat{StatVit, StatAtk, StatDef, StatAgi}

// ParseStat accepts a stat name in any case.
func ParseStat(s string) (Stat, bool) {
	st := Stat(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatVit, StatAtk, StatDef, StatAgi:
		return st, true
	}
	return "", false
}

// Kind names a debuff or damage-over-time entry.
type Kind string

const (
	KindPenance    Kind = "PENANCE"
	KindBleed      Kind = "BLEED"
	KindObsession  Kind = "OBSESSION"
	KindMadnessAtk Kind = "MADNESS_ATK"

	encouragePrefix = "ENCOURAGE_"
)

// EncourageKind is the one-round marker kind for an encourage bonus on stat.
func EncourageKind(stat Stat) Kind {
	return Kind(encouragePrefix + strings.ToUpper(string(stat)))
}

// MarkerStat reports which temp stat a one-round bonus marker raised.
// Markers are reverted when they expire.
func MarkerStat(k Kind) (Stat, bool) {
	if k == KindMadnessAtk {
		return StatAtk, true
	}
	if rest, ok := strings.CutPrefix(string(k), encouragePrefix); ok {
		return ParseStat(rest)
	}
	return "", false
}

// Effect is one debuff or damage-over-time entry.
type Effect struct {
	Kind     Kind   `json:"kind"`
	Value    int    `json:"value"`
	Turns    int    `json:"turns"`
	SourceID string `json:"source_id,omitempty"`
}

// Stacks reports whether several effects of this kind may be active at once.
func (k Kind) Stacks() bool { return k != KindPenance }

// Harmful reports whether the kind hurts its bearer. Bonus markers do not.
func (k Kind) Harmful() bool {
	_, marker := MarkerStat(k)
	return !marker
}

// Effects is an ordered list of effects with independent timers.
type Effects []Effect

// Add appends e. A non-stacking kind already present rejects it.
func (es *Effects) Add(e Effect) bool {
	if !e.Kind.Stacks() && es.Has(e.Kind) {
		return false
	}
	*es = append(*es, e)
	return true
}

// Has reports whether an effect of kind is present.
func (es Effects) Has(kind Kind) bool {
	for _, e := range es {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Total sums the values of every effect of kind.
func (es Effects) Total(kind Kind) int {
	sum := 0
	for _, e := range es {
		if e.Kind == kind {
			sum += e.Value
		}
	}
	return sum
}

// Expiring returns the effects on their last turn.
func (es Effects) Expiring() []Effect {
	var out []Effect
	for _, e := range es {
		if e.Turns == 1 {
			out = append(out, e)
		}
	}
	return out
}

// Decay decrements every timer and drops effects that ran out.
func (es *Effects) Decay() {
	kept := (*es)[:0]
	for _, e := range *es {
		e.Turns--
		if e.Turns > 0 {
			kept = append(kept, e)
		}
	}
	*es = kept
}

// RemoveHarmful drops every harmful effect and returns how many went.
func (es *Effects) RemoveHarmful() int {
	kept := (*es)[:0]
	removed := 0
	for _, e := range *es {
		if e.Kind.Harmful() {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	*es = kept
	return removed
}

// Clone returns an independent copy.
func (es Effects) Clone() Effects {
	if es == nil {
		return nil
	}
	out := make(Effects, len(es))
	copy(out, es)
	return out
}

// Shield absorbs damage before defense.
type Shield struct {
	Value        int `json:"value"`
	ExpiresRound int `json:"expires_round"`
}

// Shields is the shield list of one entity.
type Shields []Shield

// Total is the remaining absorb value.
func (ss Shields) Total() int {
	sum := 0
	for _, s := range ss {
		sum += s.Value
	}
	return sum
}

// Absorb consumes shields nearest to expiry first and returns the damage
// left over and the amount absorbed. Emptied shields are dropped.
func (ss *Shields) Absorb(dmg int) (left, absorbed int) {
	if len(*ss) == 0 || dmg <= 0 {
		return dmg, 0
	}
	sort.SliceStable(*ss, func(i, j int) bool {
		return (*ss)[i].ExpiresRound < (*ss)[j].ExpiresRound
	})
	left = dmg
	for i := range *ss {
		if left <= 0 {
			break
		}
		s := &(*ss)[i]
		take := min(s.Value, left)
		s.Value -= take
		left -= take
		absorbed += take
	}
	kept := (*ss)[:0]
	for _, s := range *ss {
		if s.Value > 0 {
			kept = append(kept, s)
		}
	}
	*ss = kept
	return left, absorbed
}

// ExpireThrough drops shields whose last round is round or earlier.
func (ss *Shields) ExpireThrough(round int) {
	kept := (*ss)[:0]
	for _, s := range *ss {
		if s.ExpiresRound > round {
			kept = append(kept, s)
		}
	}
	*ss = kept
}

// Clone returns an independent copy.
func (ss Shields) Clone() Shields {
	if ss == nil {
		return nil
	}
	out := make(Shields, len(ss))
	copy(out, ss)
	return out
}
