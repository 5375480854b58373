package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

func TestEggHuntSpec(t *testing.T) {
	game := &EggHuntGame{}
	spec := game.Spec()
	assert.Equal(t, "egghunt", spec.ID)
	assert.Equal(t, "Egg Hunt", spec.Name)
	assert.Equal(t, MetricPlace, spec.MetricLabel)
}

func TestGameRegistry(t *testing.T) {
	game, ok := GetGame("egghunt")
	require.True(t, ok)
	assert.Equal(t, "egghunt", game.Spec().ID)

	_, ok = GetGame("checkers")
	assert.False(t, ok)

	specs := ListGames()
	require.Len(t, specs, 1)
	assert.Equal(t, "egghunt", specs[0].ID)
}

func TestEggHuntEvaluateMatchesGenerate(t *testing.T) {
	seeds := Seeds{Server: "test_server", Client: "test_client"}
	game := &EggHuntGame{}

	res, err := race.Generate(12, 7, engine.NewRand(seeds, 12))
	require.NoError(t, err)

	tests := []struct {
		params map[string]any
		want   float64
	}{
		{map[string]any{"stage_count": 7.0}, float64(res.Ranking[0])},
		{map[string]any{"stage_count": 7, "color": "yellow"}, float64(res.Ranking[3])},
		{map[string]any{"stage_count": 7.0, "metric": "ticks"}, float64(res.Ticks)},
		{map[string]any{"stage_count": 7.0, "metric": "specials"}, float64(res.Specials())},
		{map[string]any{"stage_count": 7.0, "metric": "winner"}, float64(res.Ranking.Winner())},
	}
	for _, tt := range tests {
		got, err := game.Evaluate(seeds, 12, tt.params)
		require.NoError(t, err, "%v", tt.params)
		assert.Equal(t, tt.want, got.Metric, "%v", tt.params)
	}
}

func TestEggHuntStageCountBounds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
		ok    bool
	}{
		{"minimum", 5.0, 5, true},
		{"maximum", float64(race.MaxStages), race.MaxStages, true},
		{"maximum int", race.MaxStages, race.MaxStages, true},
		{"below minimum", 4.0, 0, false},
		{"above maximum", float64(race.MaxStages + 1), 0, false},
		{"huge", 2e9, 0, false},
		{"huge int", 2_000_000_000, 0, false},
		{"fractional", 5.9, 0, false},
		{"negative int", -3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseEggHuntParams(map[string]any{"stage_count": tt.value})
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.StageCount)
		})
	}
}

func TestEggHuntParams(t *testing.T) {
	p, err := ParseEggHuntParams(nil)
	require.NoError(t, err)
	assert.Equal(t, EggHuntParams{StageCount: 5, Metric: MetricPlace, Color: board.Red}, p)

	_, err = ParseEggHuntParams(map[string]any{"stage_count": 4.0})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = ParseEggHuntParams(map[string]any{"stage_count": "five"})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = ParseEggHuntParams(map[string]any{"metric": "multiplier"})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = ParseEggHuntParams(map[string]any{"color": "purple"})
	assert.ErrorIs(t, err, board.ErrInvalidToken)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
