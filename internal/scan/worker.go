package scan

import (
	"context"
	"sync/atomic"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scripting"
)

// ScanWorker processes scan jobs and sends hits to the result channel
type ScanWorker struct {
	id           int
	jobs         <-chan ScanJob
	hits         chan<- Hit
	game         games.Game
	seeds        games.Seeds
	params       map[string]any
	evaluator    *TargetEvaluator
	vm           *scripting.VM
	ceiling      *atomic.Uint64
	evaluated    *uint64
	scriptErrors *uint64
}

// Run processes jobs until the channel closes or ctx is done.
func (sw *ScanWorker) Run(ctx context.Context) error {
	for {
		select {
		case job, ok := <-sw.jobs:
			if !ok {
				return nil
			}
			if err := sw.processJob(ctx, job); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (sw *ScanWorker) processJob(ctx context.Context, job ScanJob) error {
	for nonce := job.NonceStart; ; nonce++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if nonce > sw.ceiling.Load() {
			// The limit is already met by lower nonces.
			return nil
		}

		hit, ok := sw.evaluate(nonce)
		if ok {
			select {
			case sw.hits <- hit:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if nonce == job.NonceEnd {
			return nil
		}
	}
}

// evaluate runs one nonce. Invalid evaluations are skipped, like a miss.
func (sw *ScanWorker) evaluate(nonce uint64) (Hit, bool) {
	var (
		res    *race.Result
		result games.GameResult
		err    error
	)
	if rg, ok := sw.game.(games.RaceGame); ok {
		res, result, err = rg.Race(sw.seeds, nonce, sw.params)
	} else {
		result, err = sw.game.Evaluate(sw.seeds, nonce, sw.params)
	}
	if err != nil {
		return Hit{}, false
	}
	atomic.AddUint64(sw.evaluated, 1)

	if !sw.evaluator.Matches(result.Metric) {
		return Hit{}, false
	}
	if sw.vm != nil && res != nil {
		matched, err := sw.vm.Match(res)
		if err != nil {
			atomic.AddUint64(sw.scriptErrors, 1)
			return Hit{}, false
		}
		if !matched {
			return Hit{}, false
		}
	}

	hit := Hit{Nonce: nonce, Metric: result.Metric}
	if res != nil {
		hit.Ranking = res.Ranking
	}
	return hit, true
}
