package race

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrate(t *testing.T) {
	res, err := Generate(4, 5, lastSource{})
	require.NoError(t, err)

	lines := Narrate(res)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "[Egg Hunt #4] "), l)
	}
	assert.Equal(t, "[Egg Hunt #4] The hunters begin!", lines[0])
	assert.Equal(t, "[Egg Hunt #4] Time 8: Jane grabbed egg 2.", lines[1])
	assert.Equal(t, "[Egg Hunt #4] Time 10: Vera grabbed egg 2. Blake grabbed egg 2.", lines[2])
	assert.Equal(t, "[Egg Hunt #4] Time 12: Vera's egg 2 was a power-up! Vera grabbed egg 3.", lines[3])
	assert.Equal(t, "[Egg Hunt #4] Final ranking: "+res.Ranking.String(), lines[len(lines)-1])

	log := res.Log()
	assert.Contains(t, log, "[Egg Hunt #4] Stage 0:\n[Egg Hunt #4] RB|  |GB\n[Egg Hunt #4]   |  |  \n[Egg Hunt #4] BB|  |YB")
	assert.Contains(t, log, "Stage 5:")
}

func TestEventJSONNamesSpecial(t *testing.T) {
	res, err := Generate(1, 5, lastSource{})
	require.NoError(t, err)

	for _, e := range res.Events {
		if e.Kind != EventSpecial {
			continue
		}
		b, err := json.Marshal(e)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"special":"power_up"`)
		return
	}
	t.Fatal("no special attached")
}
