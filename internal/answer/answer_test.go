package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

func TestCheckReflexive(t *testing.T) {
	for nonce := uint64(0); nonce < 20; nonce++ {
		res, err := race.Generate(1, 5, engine.NewRand(engine.Seeds{Server: "answer", Client: "c"}, nonce))
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		assert.True(t, Check(res.Ranking, [4]int(res.Ranking)))
	}
}

func TestCheckRejectsMisassignedPermutations(t *testing.T) {
	want := race.Ranking{2, 4, 1, 3}
	assert.True(t, Check(want, [4]int{2, 4, 1, 3}))
	assert.False(t, Check(want, [4]int{4, 2, 1, 3}))
	assert.False(t, Check(want, [4]int{1, 2, 3, 4}))
	assert.False(t, Check(want, [4]int{3, 1, 4, 2}))
	assert.False(t, Check(want, [4]int{2, 4, 1, 1}))
}

func TestSelectorWraps(t *testing.T) {
	var s Selector
	assert.Equal(t, 1, s.Value())
	assert.Equal(t, 2, s.Up())
	assert.Equal(t, 3, s.Up())
	assert.Equal(t, 4, s.Up())
	assert.Equal(t, 1, s.Up())
	assert.Equal(t, 4, s.Down())
	assert.Equal(t, 3, s.Down())
}

func TestInputAssemblesTuple(t *testing.T) {
	var in Input
	assert.False(t, in.Complete())

	in.Selector.Up() // 2
	assert.False(t, in.Commit())
	in.Selector.Down() // 4
	assert.False(t, in.Commit())
	assert.False(t, in.Commit()) // 1
	in.Selector.Up()
	in.Selector.Up() // 3
	assert.True(t, in.Commit())

	assert.Equal(t, [4]int{2, 4, 1, 3}, in.Slots())
	assert.True(t, Check(race.Ranking{2, 4, 1, 3}, in.Slots()))

	// Extra commits do not overflow.
	assert.True(t, in.Commit())
	assert.Equal(t, [4]int{2, 4, 1, 3}, in.Slots())

	in.Reset()
	assert.Equal(t, 0, in.Filled())
}
