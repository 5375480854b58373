package scripting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

func generate(t *testing.T, nonce uint64) *race.Result {
	t.Helper()
	res, err := race.Generate(int(nonce), 6, engine.NewRand(engine.Seeds{Server: "script", Client: "c"}, nonce))
	require.NoError(t, err)
	return res
}

func load(t *testing.T, source string, timeout time.Duration) *VM {
	t.Helper()
	prog, err := Compile(source)
	require.NoError(t, err)
	vm := NewVM(timeout)
	require.NoError(t, vm.Load(prog))
	return vm
}

func TestMatchWinner(t *testing.T) {
	vm := load(t, `function match(race) { return race.winner === "Ruby"; }`, 0)

	for nonce := uint64(0); nonce < 20; nonce++ {
		res := generate(t, nonce)
		got, err := vm.Match(res)
		require.NoError(t, err)
		assert.Equal(t, res.Ranking.Winner() == 0, got, "nonce %d", nonce)
	}
}

func TestMatchSeesRankingAndStages(t *testing.T) {
	vm := load(t, `
		function match(race) {
			log("ticks", race.ticks);
			return race.ranking[BLUE] === 1 && race.stages.length === race.stage_count + 1 &&
				race.stages[0][0].length === 2;
		}
	`, 0)

	for nonce := uint64(0); nonce < 20; nonce++ {
		res := generate(t, nonce)
		got, err := vm.Match(res)
		require.NoError(t, err)
		assert.Equal(t, res.Ranking[2] == 1, got, "nonce %d", nonce)
	}
	assert.Len(t, vm.GetLogs(), 20)
	vm.ClearLogs()
	assert.Empty(t, vm.GetLogs())
}

func TestMatchSpecials(t *testing.T) {
	vm := load(t, `function match(race) { return (race.specials || []).length; }`, 0)
	for nonce := uint64(0); nonce < 10; nonce++ {
		res := generate(t, nonce)
		got, err := vm.Match(res)
		require.NoError(t, err)
		assert.Equal(t, res.Specials() > 0, got)
	}
}

func TestLoadRequiresMatch(t *testing.T) {
	prog, err := Compile(`var x = 1;`)
	require.NoError(t, err)
	assert.ErrorIs(t, NewVM(0).Load(prog), ErrNoMatchFunc)

	_, err = Compile(`function match( {`)
	assert.Error(t, err)
}

func TestSandboxedGlobals(t *testing.T) {
	vm := load(t, `function match(race) { return typeof require === "undefined" && typeof eval === "undefined"; }`, 0)
	got, err := vm.Match(generate(t, 1))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMatchTimeout(t *testing.T) {
	vm := load(t, `function match(race) { if (race.id === 1) { while (true) {} } return true; }`, 50*time.Millisecond)

	_, err := vm.Match(generate(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	// The runtime is usable after an interrupt.
	got, err := vm.Match(generate(t, 2))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRunWithTimeoutKeepsLateSuccess(t *testing.T) {
	vm := NewVM(0)
	err := vm.runWithTimeout(time.Millisecond, func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	assert.NoError(t, err)

	// The unused interrupt is cleared, so later scripts still run.
	prog, err := Compile(`function match(race) { return true; }`)
	require.NoError(t, err)
	require.NoError(t, vm.Load(prog))
	got, err := vm.Match(generate(t, 3))
	require.NoError(t, err)
	assert.True(t, got)
}
