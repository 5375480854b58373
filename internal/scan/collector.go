package scan

import (
	"cmp"
	"slices"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// ResultCollector aggregates hits until the workers finish
type ResultCollector struct {
	hits  <-chan Hit
	limit int
	// ceiling is the highest nonce still worth evaluating. With a limit it
	// drops to the last kept hit once the limit is reached.
	ceiling *atomic.Uint64
}

// Collect drains the hit channel and returns the hits ordered by nonce. With
// a limit it keeps the lowest-nonce hits, whatever order they arrive in.
func (rc *ResultCollector) Collect() *ScanResult {
	if rc.limit <= 0 {
		collected := make([]Hit, 0, 256)
		for hit := range rc.hits {
			collected = append(collected, hit)
		}
		slices.SortFunc(collected, compareNonce)
		return &ScanResult{Hits: collected}
	}

	collected := make([]Hit, 0, min(rc.limit, 256))
	for hit := range rc.hits {
		full := len(collected) == rc.limit
		if full && hit.Nonce > collected[len(collected)-1].Nonce {
			continue
		}
		i, _ := slices.BinarySearchFunc(collected, hit, compareNonce)
		collected = slices.Insert(collected, i, hit)
		if len(collected) > rc.limit {
			collected = collected[:rc.limit]
		}
		if len(collected) == rc.limit {
			rc.ceiling.Store(collected[len(collected)-1].Nonce)
		}
	}
	return &ScanResult{Hits: collected}
}

func compareNonce(a, b Hit) int {
	return cmp.Compare(a.Nonce, b.Nonce)
}

// calculateSummary computes aggregate statistics
func calculateSummary(hits []Hit, totalEvaluated uint64, timedOut bool) Summary {
	summary := Summary{
		TotalEvaluated: totalEvaluated,
		HitsFound:      len(hits),
		TimedOut:       timedOut,
	}
	if len(hits) == 0 {
		return summary
	}

	lo, hi, sum := hits[0].Metric, hits[0].Metric, 0.0
	var wins [4]int64
	ranked := int64(0)
	for _, h := range hits {
		if h.Metric < lo {
			lo = h.Metric
		}
		if h.Metric > hi {
			hi = h.Metric
		}
		sum += h.Metric
		if w := h.Ranking.Winner(); w >= 0 {
			wins[w]++
			ranked++
		}
	}
	summary.MinMetric = lo
	summary.MaxMetric = hi
	summary.MeanMetric = sum / float64(len(hits))

	if ranked > 0 {
		summary.WinShare = make(map[string]decimal.Decimal, len(race.Hunters))
		total := decimal.NewFromInt(ranked)
		for i, h := range race.Hunters {
			summary.WinShare[h.Name] = decimal.NewFromInt(wins[i]).
				Mul(decimal.NewFromInt(100)).
				DivRound(total, 2)
		}
	}
	return summary
}
