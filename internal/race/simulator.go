package race

import (
	"fmt"
	"slices"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
)

var (
	specialBag = []board.Kind{board.PowerUp, board.PowerUp, board.PowerUp, board.PowerDown, board.Disruptor}
	cornerBag  = []int{0, 2, 6, 8}
)

const powerUpTicks = 3

type hunterState struct {
	pos      int
	goal     int
	progress int
	speedup  int
	next     int
}

func (h *hunterState) ready(finish int) bool {
	if h.next > finish {
		return false
	}
	mult := 2
	if h.speedup > 0 {
		mult = 1
	}
	return board.SquaredDistance(h.pos, h.goal)*mult <= h.progress
}

type simulator struct {
	src      Source
	finish   int
	specials []board.Kind
	tags     []board.Color
	stages   []board.Stage
	hunters  [4]hunterState
	ranking  Ranking
	place    int
	events   []Event
}

// Generate runs a race over stageCount stages to completion. id only labels
// the result; it does not influence the draws.
func Generate(id, stageCount int, src Source) (*Result, error) {
	if stageCount < MinStages || stageCount > MaxStages {
		return nil, fmt.Errorf("%w: %d not in %d..%d", ErrStageCount, stageCount, MinStages, MaxStages)
	}

	s := &simulator{
		src:    src,
		finish: stageCount + 1,
		stages: make([]board.Stage, 1, stageCount+1),
		place:  1,
	}
	s.specials = shuffledBlocks(src, specialBag, stageCount)
	s.tags = shuffledBlocks(src, board.Colors[:], stageCount)

	corners := slices.Clone(cornerBag)
	shuffle(src, corners)
	for i, h := range Hunters {
		tok, err := board.NewToken(h.Color, board.StartBasket)
		if err != nil {
			return nil, err
		}
		if err := s.stages[0].Put(tok, corners[i]); err != nil {
			return nil, err
		}
		s.hunters[i] = hunterState{pos: corners[i], goal: corners[i], next: 1}
	}

	tick := 0
	for ; s.running(); tick++ {
		if err := s.tick(tick); err != nil {
			return nil, err
		}
	}

	for len(s.stages) < stageCount+1 {
		s.stages = append(s.stages, board.Stage{})
	}

	return &Result{
		ID:         id,
		StageCount: stageCount,
		Stages:     s.stages,
		Ranking:    s.ranking,
		Events:     s.events,
		Ticks:      tick,
	}, nil
}

func (s *simulator) running() bool {
	for i := range s.hunters {
		if s.hunters[i].next <= s.finish {
			return true
		}
	}
	return false
}

func (s *simulator) tick(t int) error {
	if t == 0 {
		s.emit(Event{Tick: t, Kind: EventStart, Hunter: -1})
	}

	var ready []int
	for i := range s.hunters {
		if s.hunters[i].ready(s.finish) {
			ready = append(ready, i)
		}
	}
	// Shuffle first so the stable sort leaves equal slots in random order.
	shuffle(s.src, ready)
	slices.SortStableFunc(ready, func(a, b int) int {
		return s.hunters[a].next - s.hunters[b].next
	})

	attached := false
	pull := -1
	foil := false

	for _, i := range ready {
		h := &s.hunters[i]
		color := Hunters[i].Color

		if h.next == s.finish {
			s.ranking[i] = s.place
			s.place++
			h.next++
			s.emit(Event{Tick: t, Kind: EventFinish, Hunter: i, Place: s.ranking[i]})
			continue
		}

		for len(s.stages) <= h.next {
			s.stages = append(s.stages, board.Stage{})
		}
		cell := s.pickCell(h)

		if h.speedup > 0 {
			h.speedup--
		}

		if !attached && h.next > 1 && s.tags[h.next-2] == color {
			special := s.specials[h.next-2]
			if err := s.attach(t, i, h.next-1, special); err != nil {
				return err
			}
			attached = true
			switch special {
			case board.PowerUp:
				h.speedup += powerUpTicks
			case board.PowerDown:
				pull = cell
			case board.Disruptor:
				foil = true
			}
		}

		if err := s.stages[h.next].Put(color, cell); err != nil {
			return fmt.Errorf("place %s egg %d: %w", Hunters[i].Name, h.next, err)
		}
		s.emit(Event{Tick: t, Kind: EventGrab, Hunter: i, Stage: h.next, Cell: cell})

		h.pos = h.goal
		h.goal = cell
		h.progress = 0
		h.next++
	}

	if pull >= 0 {
		for i := range s.hunters {
			s.hunters[i].pos = pull
			s.hunters[i].goal = pull
			s.hunters[i].progress = 0
		}
		s.emit(Event{Tick: t, Kind: EventPull, Hunter: -1, Cell: pull})
	}
	if foil {
		for i := range s.hunters {
			if p := s.hunters[i].progress; p > 0 {
				s.hunters[i].progress = -p
			}
		}
		s.emit(Event{Tick: t, Kind: EventFoil, Hunter: -1})
	}
	for i := range s.hunters {
		s.hunters[i].progress++
	}

	return nil
}

// pickCell draws a free cell of the hunter's next stage, never the cell the
// hunter is currently heading for.
func (s *simulator) pickCell(h *hunterState) int {
	occupied := s.stages[h.next].Occupied()
	free := make([]int, 0, board.Cells)
	for c := 0; c < board.Cells; c++ {
		if !occupied[c] && c != h.goal {
			free = append(free, c)
		}
	}
	return free[s.src.IntN(len(free))]
}

// attach ORs special into the egg hunter i left in stage.
func (s *simulator) attach(t, i, stage int, special board.Kind) error {
	st := &s.stages[stage]
	idx, ok := st.Find(Hunters[i].Color)
	if !ok {
		return fmt.Errorf("attach %s to %s: no egg in stage %d", board.KindName(special), Hunters[i].Name, stage)
	}
	tok, _ := st.At(idx)
	if err := st.Put(tok.With(special), idx); err != nil {
		return fmt.Errorf("attach %s to %s: %w", board.KindName(special), Hunters[i].Name, err)
	}
	s.emit(Event{Tick: t, Kind: EventSpecial, Hunter: i, Stage: stage, Cell: idx, Special: special})
	return nil
}

func (s *simulator) emit(e Event) {
	s.events = append(s.events, e)
}

// shuffledBlocks appends independently shuffled copies of bag until the
// result holds at least n values.
func shuffledBlocks[T any](src Source, bag []T, n int) []T {
	out := make([]T, 0, n+len(bag))
	for len(out) < n {
		block := slices.Clone(bag)
		shuffle(src, block)
		out = append(out, block...)
	}
	return out
}

// shuffle is a Fisher-Yates shuffle driven by src.
func shuffle[T any](src Source, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
