package dice

// Sequence replays a fixed list of uniform draws in [0, 1).
// Intn(n) maps a draw u to floor(u*n), so one list drives both dice and
// percent checks in the order the rules consume them.
// Once the list is exhausted Default is returned.
type Sequence struct {
	Values  []float64
	Default float64
	pos     int
}

// NewSequence builds a Sequence that falls back to 0.99 once drained.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{Values: values, Default: 0.99}
}

func (s *Sequence) next() float64 {
	if s.pos >= len(s.Values) {
		return s.Default
	}
	v := s.Values[s.pos]
	s.pos++
	return v
}

// Float64 returns the next scripted draw.
func (s *Sequence) Float64() float64 { return s.next() }

// Intn returns floor(u*n) for the next scripted draw u.
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("dice: invalid argument to Intn")
	}
	v := int(s.next() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Push appends draws to the script.
func (s *Sequence) Push(values ...float64) { s.Values = append(s.Values, values...) }

// Used returns how many scripted draws have been consumed.
func (s *Sequence) Used() int { return s.pos }

// Face returns a draw that makes Roll(src, sides) produce face.
func Face(face, sides int) float64 {
	return (float64(face) - 0.5) / float64(sides)
}

// Hit and Miss are draws that pass or fail any percent check in (0, 100).
const (
	Hit  = 0.0
	Miss = 0.999
)
