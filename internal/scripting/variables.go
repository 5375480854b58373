package scripting

import (
	"github.com/dop251/goja"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// injectConstants sets read-only color and special names on the JS runtime.
func injectConstants(vm *goja.Runtime) {
	vm.Set("RED", 0)
	vm.Set("GREEN", 1)
	vm.Set("BLUE", 2)
	vm.Set("YELLOW", 3)

	vm.Set("POWER_UP", board.KindName(board.PowerUp))
	vm.Set("POWER_DOWN", board.KindName(board.PowerDown))
	vm.Set("DISRUPTOR", board.KindName(board.Disruptor))
}

// raceObject flattens a race into plain JS-friendly values:
//
//	race.ranking   places in RED, GREEN, BLUE, YELLOW order
//	race.winner    name of the first-place hunter
//	race.stages    per stage, nine two-character symbols
//	race.specials  [{hunter, stage, kind}] in attachment order
func raceObject(res *race.Result) map[string]any {
	ranking := make([]any, len(res.Ranking))
	for i, p := range res.Ranking {
		ranking[i] = p
	}

	stages := make([]any, len(res.Stages))
	for i := range res.Stages {
		sym := res.Stages[i].Symbols()
		row := make([]any, len(sym))
		for j, s := range sym {
			row[j] = s
		}
		stages[i] = row
	}

	specials := []any{}
	for _, e := range res.Events {
		if e.Kind != race.EventSpecial {
			continue
		}
		specials = append(specials, map[string]any{
			"hunter": race.Hunters[e.Hunter].Name,
			"stage":  e.Stage,
			"kind":   board.KindName(e.Special),
			"tick":   e.Tick,
		})
	}

	winner := ""
	if w := res.Ranking.Winner(); w >= 0 {
		winner = race.Hunters[w].Name
	}

	return map[string]any{
		"id":          res.ID,
		"stage_count": res.StageCount,
		"ticks":       res.Ticks,
		"ranking":     ranking,
		"winner":      winner,
		"stages":      stages,
		"specials":    specials,
	}
}
