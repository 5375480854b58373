// Package answer verifies submitted rankings and models the bounded selector
// the input flow uses to assemble them.
package answer

import "github.com/BakersDozenBagels/KtaneEggHunt/internal/race"

// MinValue and MaxValue bound every selectable place.
const (
	MinValue = 1
	MaxValue = 4
)

// Check reports whether submitted equals want element-wise, in Red, Green,
// Blue, Yellow order.
func Check(want race.Ranking, submitted [4]int) bool {
	return [4]int(want) == submitted
}

// Selector cycles through MinValue..MaxValue, wrapping at both ends.
type Selector struct {
	value int
}

// NewSelector starts at MinValue.
func NewSelector() Selector {
	return Selector{value: MinValue}
}

// Value returns the current value.
func (s Selector) Value() int {
	if s.value == 0 {
		return MinValue
	}
	return s.value
}

// Up advances by one, wrapping to MinValue.
func (s *Selector) Up() int {
	v := s.Value() + 1
	if v > MaxValue {
		v = MinValue
	}
	s.value = v
	return v
}

// Down steps back by one, wrapping to MaxValue.
func (s *Selector) Down() int {
	v := s.Value() - 1
	if v < MinValue {
		v = MaxValue
	}
	s.value = v
	return v
}

// Input builds a 4-tuple one slot at a time.
type Input struct {
	Selector Selector
	slots    [4]int
	filled   int
}

// Commit stores the selector value in the next slot and reports whether the
// tuple is complete.
func (in *Input) Commit() bool {
	if in.filled < len(in.slots) {
		in.slots[in.filled] = in.Selector.Value()
		in.filled++
	}
	in.Selector = NewSelector()
	return in.Complete()
}

// Complete reports whether all four slots hold a value.
func (in *Input) Complete() bool { return in.filled == len(in.slots) }

// Filled returns how many slots are committed.
func (in *Input) Filled() int { return in.filled }

// Slots returns the committed values; uncommitted slots are zero.
func (in *Input) Slots() [4]int { return in.slots }

// Reset clears every slot.
func (in *Input) Reset() { *in = Input{} }
