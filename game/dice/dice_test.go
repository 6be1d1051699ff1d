package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaceRoundTrip(t *testing.T) {
	for _, sides := range []int{2, 5, 6} {
		for face := 1; face <= sides; face++ {
			seq := NewSequence(Face(face, sides))
			assert.Equal(t, face, Roll(seq, sides), "d%d face %d", sides, face)
		}
	}
}

func TestChance(t *testing.T) {
	seq := NewSequence(0.049, 0.05, Hit, Miss)
	assert.True(t, Chance(seq, 5))
	assert.False(t, Chance(seq, 5))
	assert.False(t, Chance(seq, 0), "zero percent never hits")
	assert.False(t, Chance(seq, 99))
}

func TestSequenceDefault(t *testing.T) {
	seq := NewSequence(0.1)
	assert.Equal(t, 1, D6(seq))
	assert.Equal(t, 6, D6(seq), "drained sequence falls back to the default draw")
	assert.Equal(t, 1, seq.Used(), "only scripted draws count")
}

func TestPick(t *testing.T) {
	seq := NewSequence(0.5)
	assert.Equal(t, -1, Pick(seq, 0))
	assert.Equal(t, 2, Pick(seq, 4))
}

func TestNewSourceDeterministic(t *testing.T) {
	a, b := NewSource(42), NewSource(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, D6(a), D6(b))
	}
}
