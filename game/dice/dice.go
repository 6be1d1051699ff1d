// Package dice isolates every random draw made by the encounter rules.
package dice

import (
	"math/rand"
	"time"
)

// Source is the single randomness source used by the rules engine.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// NewSource returns a seeded *rand.Rand. A zero seed uses the wall clock.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Roll returns a uniform integer in [1, sides].
func Roll(src Source, sides int) int {
	if sides <= 1 {
		return 1
	}
	return src.Intn(sides) + 1
}

// D2, D5 and D6 are the dice the rules use.
func D2(src Source) int { return Roll(src, 2) }
func D5(src Source) int { return Roll(src, 5) }
func D6(src Source) int { return Roll(src, 6) }

// Chance reports whether a percent check at p succeeds (u*100 < p).
func Chance(src Source, p int) bool {
	return src.Float64()*100 < float64(p)
}

// Pick returns a uniform index in [0, n), or -1 when n is zero.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	return src.Intn(n)
}
