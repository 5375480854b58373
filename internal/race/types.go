// Package race generates egg hunt races: four hunters collect one egg per
// stage across a sequence of 3x3 grids, picking up specials on the way, and
// finish in a ranked order.
package race

import (
	"errors"
	"fmt"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
)

// MinStages and MaxStages bound the stage count Generate accepts.
const (
	MinStages = 5
	MaxStages = 1000
)

// ErrStageCount rejects stage counts outside MinStages..MaxStages.
var ErrStageCount = errors.New("stage count out of range")

// Source supplies uniform integer draws. *math/rand/v2.Rand and
// *engine.Rand both satisfy it.
type Source interface {
	IntN(n int) int
}

// Hunter is one of the four fixed competitors.
type Hunter struct {
	Name  string      `json:"name"`
	Color board.Color `json:"color"`
}

// Hunters are indexed in ranking order.
var Hunters = [4]Hunter{
	{Name: "Ruby", Color: board.Red},
	{Name: "Vera", Color: board.Green},
	{Name: "Blake", Color: board.Blue},
	{Name: "Jane", Color: board.Yellow},
}

// Ranking holds the 1-based place of each color, in Red, Green, Blue,
// Yellow order.
type Ranking [4]int

// Valid reports whether r is a permutation of 1..4.
func (r Ranking) Valid() bool {
	var seen [5]bool
	for _, p := range r {
		if p < 1 || p > 4 || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// Winner returns the hunter index holding first place, or -1.
func (r Ranking) Winner() int {
	for i, p := range r {
		if p == 1 {
			return i
		}
	}
	return -1
}

// String renders the ranking the way the log prints it.
func (r Ranking) String() string {
	return fmt.Sprintf("Red %d, Green %d, Blue %d, Yellow %d", r[0], r[1], r[2], r[3])
}

// Result is everything a race produces. Stages has StageCount+1 entries;
// index 0 holds the start baskets.
type Result struct {
	ID         int           `json:"id"`
	StageCount int           `json:"stage_count"`
	Stages     []board.Stage `json:"stages"`
	Ranking    Ranking       `json:"ranking"`
	Events     []Event       `json:"events"`
	Ticks      int           `json:"ticks"`
}

// Specials counts the specials attached during the race.
func (r *Result) Specials() int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == EventSpecial {
			n++
		}
	}
	return n
}
