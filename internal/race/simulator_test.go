package race

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
)

// lastSource always draws the largest value, which makes every shuffle the
// identity and every cell pick the highest free index.
type lastSource struct{}

func (lastSource) IntN(n int) int { return n - 1 }

// zeroSource always draws 0, which rotates every shuffle left by one and
// makes every cell pick the lowest free index.
type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func stageOf(t *testing.T, cells map[int]board.Token) board.Stage {
	t.Helper()
	var s board.Stage
	for idx, tok := range cells {
		require.NoError(t, s.Put(tok, idx))
	}
	return s
}

func TestGenerateRejectsShortRaces(t *testing.T) {
	_, err := Generate(1, MinStages-1, lastSource{})
	require.ErrorIs(t, err, ErrStageCount)
	_, err = Generate(1, MaxStages+1, lastSource{})
	require.ErrorIs(t, err, ErrStageCount)
}

func TestGenerateFixedCorners(t *testing.T) {
	res, err := Generate(1, 5, lastSource{})
	require.NoError(t, err)
	require.Len(t, res.Stages, 6)

	want := stageOf(t, map[int]board.Token{
		0: board.Red | board.StartBasket,
		2: board.Green | board.StartBasket,
		6: board.Blue | board.StartBasket,
		8: board.Yellow | board.StartBasket,
	})
	assert.Equal(t, want, res.Stages[0])
	assert.Equal(t, 4, res.Stages[0].Len())
}

func TestGenerateTrace(t *testing.T) {
	res, err := Generate(1, 5, lastSource{})
	require.NoError(t, err)

	// Red's first egg picks up the power-up tagged for slot 2; Green's second
	// egg picks up the one tagged for slot 3.
	stage1 := stageOf(t, map[int]board.Token{
		5: board.Blue,
		6: board.Yellow,
		7: board.Green,
		8: board.Red | board.PowerUp,
	})
	stage2 := stageOf(t, map[int]board.Token{
		5: board.Red,
		6: board.Green | board.PowerUp,
		7: board.Blue,
		8: board.Yellow,
	})
	if diff := cmp.Diff(stage1.Symbols(), res.Stages[1].Symbols()); diff != "" {
		t.Errorf("stage 1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(stage2.Symbols(), res.Stages[2].Symbols()); diff != "" {
		t.Errorf("stage 2 mismatch (-want +got):\n%s", diff)
	}

	require.NotEmpty(t, res.Events)
	assert.Equal(t, EventStart, res.Events[0].Kind)
	assert.True(t, res.Ranking.Valid(), "ranking %v", res.Ranking)
}

func TestGenerateProperties(t *testing.T) {
	for stageCount := MinStages; stageCount <= 12; stageCount++ {
		for nonce := uint64(0); nonce < 40; nonce++ {
			name := fmt.Sprintf("stages=%d/nonce=%d", stageCount, nonce)
			src := engine.NewRand(engine.Seeds{Server: "props_server", Client: "props_client"}, nonce)
			res, err := Generate(int(nonce), stageCount, src)
			require.NoError(t, err, name)

			require.True(t, res.Ranking.Valid(), "%s: ranking %v", name, res.Ranking)
			require.Len(t, res.Stages, stageCount+1, name)

			corners := map[int]bool{}
			for p := range res.Stages[0].Tokens() {
				assert.Equal(t, board.StartBasket, p.Token.Kind(), name)
				corners[p.Cell.Index()] = true
			}
			assert.Len(t, corners, 4, name)
			for idx := range corners {
				assert.Contains(t, []int{0, 2, 6, 8}, idx, name)
			}

			// Every stage holds one egg per color, so nothing was overwritten.
			for i := 1; i <= stageCount; i++ {
				assert.Equal(t, 4, res.Stages[i].Len(), "%s stage %d", name, i)
				for _, c := range board.Colors {
					_, ok := res.Stages[i].Find(c)
					assert.True(t, ok, "%s stage %d missing %s", name, i, board.ColorName(c))
				}
				for p := range res.Stages[i].Tokens() {
					assert.NoError(t, p.Token.Validate())
					assert.NotEqual(t, board.StartBasket, p.Token.Kind())
				}
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	seeds := engine.Seeds{Server: "determinism_server", Client: "determinism_client"}

	ref, err := Generate(7, 9, engine.NewRand(seeds, 99))
	require.NoError(t, err)

	t.Run("repeated calls", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			got, err := Generate(7, 9, engine.NewRand(seeds, 99))
			require.NoError(t, err)
			if diff := cmp.Diff(ref.Log(), got.Log()); diff != "" {
				t.Fatalf("log differs (-ref +got):\n%s", diff)
			}
			assert.Equal(t, ref.Ranking, got.Ranking)
			assert.Equal(t, ref.Stages, got.Stages)
			assert.Equal(t, ref.Events, got.Events)
		}
	})

	t.Run("concurrent calls", func(t *testing.T) {
		const workers = 8
		var wg sync.WaitGroup
		results := make([]*Result, workers)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				res, err := Generate(7, 9, engine.NewRand(seeds, 99))
				if err == nil {
					results[w] = res
				}
			}(w)
		}
		wg.Wait()
		for w, res := range results {
			require.NotNil(t, res, "worker %d", w)
			assert.Equal(t, ref.Stages, res.Stages, "worker %d", w)
			assert.Equal(t, ref.Ranking, res.Ranking, "worker %d", w)
		}
	})

	t.Run("math/rand source", func(t *testing.T) {
		a, err := Generate(1, 6, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		b, err := Generate(1, 6, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		assert.Equal(t, a.Stages, b.Stages)
		assert.Equal(t, a.Ranking, b.Ranking)
	})
}

func TestSpecialsAreOncePerTick(t *testing.T) {
	for nonce := uint64(0); nonce < 100; nonce++ {
		res, err := Generate(1, 10, engine.NewRand(engine.Seeds{Server: "specials", Client: "c"}, nonce))
		require.NoError(t, err)

		perTick := map[int]int{}
		attached := 0
		for _, e := range res.Events {
			if e.Kind == EventSpecial {
				perTick[e.Tick]++
				attached++
				assert.Greater(t, e.Stage, 0)
				assert.Less(t, e.Stage, res.StageCount)
			}
		}
		for tick, n := range perTick {
			assert.Equal(t, 1, n, "nonce %d tick %d", nonce, tick)
		}
		assert.Equal(t, attached, res.Specials())

		onBoard := 0
		for i := 1; i < len(res.Stages); i++ {
			for p := range res.Stages[i].Tokens() {
				if p.Token.Kind() != board.None {
					onBoard++
				}
			}
		}
		assert.Equal(t, attached, onBoard, "nonce %d", nonce)
	}
}

// midRace builds a simulator five stages long where Ruby, having laid her
// first egg in cell 4, is ready for her second and everyone else is idle.
func midRace(t *testing.T, specials []board.Kind) *simulator {
	t.Helper()
	s := &simulator{
		src:      zeroSource{},
		finish:   6,
		specials: specials,
		tags:     []board.Color{board.Red, board.Green, board.Green, board.Green, board.Green},
		stages:   []board.Stage{{}, stageOf(t, map[int]board.Token{4: board.Red})},
		place:    1,
	}
	s.hunters[0] = hunterState{pos: 0, goal: 4, progress: 10, next: 2}
	for i, corner := range []int{2, 6, 8} {
		s.hunters[i+1] = hunterState{pos: corner, goal: corner, progress: -1, next: 1}
	}
	return s
}

func TestTickPowerDownPullsEveryone(t *testing.T) {
	s := midRace(t, []board.Kind{board.PowerDown, board.PowerUp, board.PowerUp, board.PowerUp, board.PowerUp})
	require.NoError(t, s.tick(5))

	assert.Equal(t, []Event{
		{Tick: 5, Kind: EventSpecial, Hunter: 0, Stage: 1, Cell: 4, Special: board.PowerDown},
		{Tick: 5, Kind: EventGrab, Hunter: 0, Stage: 2, Cell: 0},
		{Tick: 5, Kind: EventPull, Hunter: -1, Cell: 0},
	}, s.events)
	assert.Equal(t, [4]hunterState{
		{pos: 0, goal: 0, progress: 1, next: 3},
		{pos: 0, goal: 0, progress: 1, next: 1},
		{pos: 0, goal: 0, progress: 1, next: 1},
		{pos: 0, goal: 0, progress: 1, next: 1},
	}, s.hunters)
	tok, _ := s.stages[1].At(4)
	assert.Equal(t, board.Red|board.PowerDown, tok)

	// Everyone now stands on their goal, so all four grab on the next tick.
	require.NoError(t, s.tick(6))
	assert.Equal(t, []Event{
		{Tick: 6, Kind: EventGrab, Hunter: 1, Stage: 1, Cell: 1},
		{Tick: 6, Kind: EventGrab, Hunter: 2, Stage: 1, Cell: 2},
		{Tick: 6, Kind: EventGrab, Hunter: 3, Stage: 1, Cell: 3},
		{Tick: 6, Kind: EventGrab, Hunter: 0, Stage: 3, Cell: 1},
	}, s.events[3:])
}

func TestTickDisruptorFoilsProgress(t *testing.T) {
	s := midRace(t, []board.Kind{board.Disruptor, board.PowerUp, board.PowerUp, board.PowerUp, board.PowerUp})
	s.hunters[1] = hunterState{pos: 0, goal: 8, progress: 5, next: 1}
	s.hunters[2] = hunterState{pos: 6, goal: 6, progress: -3, next: 1}
	s.hunters[3] = hunterState{pos: 8, goal: 2, progress: 0, next: 1}
	require.NoError(t, s.tick(5))

	assert.Equal(t, []Event{
		{Tick: 5, Kind: EventSpecial, Hunter: 0, Stage: 1, Cell: 4, Special: board.Disruptor},
		{Tick: 5, Kind: EventGrab, Hunter: 0, Stage: 2, Cell: 0},
		{Tick: 5, Kind: EventFoil, Hunter: -1},
	}, s.events)

	var progress [4]int
	for i, h := range s.hunters {
		progress[i] = h.progress
	}
	// Positive progress is negated before every hunter advances one step.
	assert.Equal(t, [4]int{1, -4, -2, 1}, progress)
	assert.Equal(t, 4, s.hunters[0].pos)
	assert.Equal(t, 0, s.hunters[0].goal)
}

func TestTickSpecialComesFromPreviousStageSlot(t *testing.T) {
	s := midRace(t, []board.Kind{board.PowerUp, board.Disruptor, board.PowerUp, board.PowerUp, board.PowerUp})
	s.tags[1] = board.Red
	s.stages = append(s.stages, stageOf(t, map[int]board.Token{5: board.Red}))
	s.hunters[0] = hunterState{pos: 4, goal: 5, progress: 10, next: 3}
	require.NoError(t, s.tick(5))

	// Laying egg 3 attaches slot 1 of the bags to egg 2.
	assert.Equal(t, []Event{
		{Tick: 5, Kind: EventSpecial, Hunter: 0, Stage: 2, Cell: 5, Special: board.Disruptor},
		{Tick: 5, Kind: EventGrab, Hunter: 0, Stage: 3, Cell: 0},
		{Tick: 5, Kind: EventFoil, Hunter: -1},
	}, s.events)
	first, _ := s.stages[1].At(4)
	second, _ := s.stages[2].At(5)
	assert.Equal(t, board.Red, first)
	assert.Equal(t, board.Red|board.Disruptor, second)
	assert.Zero(t, s.hunters[0].speedup)
}

func TestTickPowerUpSpeedsHunter(t *testing.T) {
	s := midRace(t, []board.Kind{board.PowerUp, board.PowerUp, board.PowerUp, board.PowerUp, board.PowerUp})
	require.NoError(t, s.tick(5))

	assert.Equal(t, powerUpTicks, s.hunters[0].speedup)
	assert.Equal(t, EventSpecial, s.events[0].Kind)
	assert.Equal(t, board.PowerUp, s.events[0].Special)
	assert.Len(t, s.events, 2)
}

func TestTickSameTickFinishersTakeConsecutivePlaces(t *testing.T) {
	s := &simulator{src: zeroSource{}, finish: 6, place: 1}
	s.hunters[0] = hunterState{pos: 0, goal: 0, next: 6}
	s.hunters[1] = hunterState{pos: 2, goal: 2, next: 6}
	s.hunters[2] = hunterState{pos: 6, goal: 6, progress: -1, next: 3}
	s.hunters[3] = hunterState{pos: 8, goal: 8, progress: -1, next: 3}
	require.NoError(t, s.tick(9))

	// The shuffle puts Vera ahead of Ruby; both finish in that order.
	assert.Equal(t, []Event{
		{Tick: 9, Kind: EventFinish, Hunter: 1, Place: 1},
		{Tick: 9, Kind: EventFinish, Hunter: 0, Place: 2},
	}, s.events)
	assert.Equal(t, Ranking{2, 1, 0, 0}, s.ranking)
	assert.Equal(t, 3, s.place)
	assert.Equal(t, 7, s.hunters[0].next)
	assert.Equal(t, 7, s.hunters[1].next)
	assert.True(t, s.running())
}

func TestFinishEventsMatchRanking(t *testing.T) {
	res, err := Generate(3, 5, engine.NewRand(engine.Seeds{Server: "finish", Client: "c"}, 5))
	require.NoError(t, err)

	var order []int
	for _, e := range res.Events {
		if e.Kind == EventFinish {
			assert.Equal(t, res.Ranking[e.Hunter], e.Place)
			order = append(order, e.Hunter)
		}
	}
	require.Len(t, order, 4)
	assert.Equal(t, order[0], res.Ranking.Winner())
	assert.Equal(t, res.Ticks-1, res.Events[len(res.Events)-1].Tick)
}

func TestRanking(t *testing.T) {
	assert.True(t, Ranking{2, 1, 4, 3}.Valid())
	assert.False(t, Ranking{1, 1, 2, 3}.Valid())
	assert.False(t, Ranking{0, 1, 2, 3}.Valid())
	assert.Equal(t, 1, Ranking{2, 1, 4, 3}.Winner())
	assert.Equal(t, "Red 2, Green 1, Blue 4, Yellow 3", Ranking{2, 1, 4, 3}.String())
}
