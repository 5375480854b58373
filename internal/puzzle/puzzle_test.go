package puzzle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/answer"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
)

func newInstance(t *testing.T, modules int) *Instance {
	t.Helper()
	in, err := New(Config{ID: 1, ModuleCount: modules}, engine.NewRand(engine.Seeds{Server: "puzzle", Client: "test"}, 3))
	require.NoError(t, err)
	return in
}

func TestStageCount(t *testing.T) {
	tests := []struct {
		modules, stages, skip int
	}{
		{0, 5, 5},
		{2, 5, 3},
		{5, 5, 0},
		{11, 11, 0},
	}
	for _, tt := range tests {
		stages, skip, err := StageCount(tt.modules)
		require.NoError(t, err)
		assert.Equal(t, tt.stages, stages, "modules=%d", tt.modules)
		assert.Equal(t, tt.skip, skip, "modules=%d", tt.modules)
	}

	_, _, err := StageCount(-1)
	assert.ErrorIs(t, err, ErrModuleCount)
}

func TestRevealAndView(t *testing.T) {
	in := newInstance(t, 6)
	assert.Equal(t, PhaseViewing, in.Phase())
	assert.Equal(t, 0, in.Revealed())

	_, ok := in.Stage(1)
	assert.False(t, ok)

	assert.True(t, in.Reveal(2))
	assert.False(t, in.Reveal(1))
	idx, st := in.Current()
	assert.Equal(t, 2, idx)
	assert.Equal(t, in.Result().Stages[2], st)

	assert.Equal(t, 2, in.Next())
	assert.Equal(t, 1, in.Prev())
	assert.Equal(t, 0, in.Prev())
	assert.Equal(t, 0, in.Prev())

	_, err := in.Submit([4]int(in.Result().Ranking))
	assert.ErrorIs(t, err, ErrNotReady)

	assert.True(t, in.Reveal(99))
	assert.Equal(t, 6, in.Revealed())
	assert.Equal(t, PhaseInput, in.Phase())
}

func TestPaddedPuzzleSkipsAhead(t *testing.T) {
	in := newInstance(t, 3)
	assert.Equal(t, 2, in.Skip())
	assert.Equal(t, 2, in.Revealed())

	in.Reveal(3)
	assert.Equal(t, PhaseInput, in.Phase())

	none := newInstance(t, 0)
	assert.Equal(t, PhaseInput, none.Phase())
}

func TestSubmitStrikeThenSolve(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in, err := New(Config{ID: 9, ModuleCount: 5, Logger: logger}, engine.NewRand(engine.Seeds{Server: "puzzle", Client: "test"}, 4))
	require.NoError(t, err)
	in.Reveal(5)

	right := [4]int(in.Result().Ranking)
	wrong := [4]int{right[1], right[0], right[2], right[3]}

	out, err := in.Submit(wrong)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStrike, out)
	assert.Equal(t, 1, in.Strikes())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	out, err = in.Submit(right)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolve, out)
	assert.Equal(t, PhaseSolved, in.Phase())
	assert.Equal(t, "solved", hook.LastEntry().Message)

	_, err = in.Submit(right)
	assert.ErrorIs(t, err, ErrSolved)
}

func TestResumeReplaysState(t *testing.T) {
	in := newInstance(t, 7)
	in.Reveal(7)
	right := [4]int(in.Result().Ranking)
	_, err := in.Submit([4]int{right[3], right[2], right[1], right[0]})
	require.NoError(t, err)

	st := in.State()
	assert.Equal(t, State{Revealed: 7, Strikes: 1, Phase: PhaseInput}, st)

	back := Resume(Config{ID: 1, ModuleCount: 7}, in.Result(), in.Skip(), st)
	assert.Equal(t, st, back.State())

	out, err := back.Submit(right)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolve, out)

	solved := Resume(Config{ID: 1}, in.Result(), in.Skip(), back.State())
	_, err = solved.Submit(right)
	assert.ErrorIs(t, err, ErrSolved)
}

func TestSubmitInput(t *testing.T) {
	in := newInstance(t, 5)
	in.Reveal(5)

	_, err := in.SubmitInput()
	assert.ErrorIs(t, err, ErrIncomplete)

	ranking := in.Result().Ranking
	in.Input(func(inp *answer.Input) {
		for _, place := range ranking {
			for inp.Selector.Value() != place {
				inp.Selector.Up()
			}
			inp.Commit()
		}
	})

	out, err := in.SubmitInput()
	require.NoError(t, err)
	assert.Equal(t, OutcomeSolve, out)
}

func TestDebugLoggerNarratesRace(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := New(Config{ID: 2, ModuleCount: 5, Logger: logger}, engine.NewRand(engine.Seeds{Server: "s", Client: "c"}, 1))
	require.NoError(t, err)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "[Egg Hunt #2] The hunters begin!", hook.AllEntries()[0].Message)
}

func TestWatchRevealsUntilInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := newInstance(t, 5)
	var solved atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- in.Watch(context.Background(), time.Millisecond, func() int { return int(solved.Add(1)) })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not finish")
	}
	assert.Equal(t, PhaseInput, in.Phase())
}

func TestWatchStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := newInstance(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := in.Watch(ctx, time.Hour, func() int { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}
