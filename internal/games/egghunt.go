package games

import (
	"fmt"
	"math"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// EggHuntGame generates a race from the seeded stream and reports one of its
// properties as the metric.
type EggHuntGame struct{}

// Metric names accepted in params["metric"].
const (
	MetricPlace    = "place"
	MetricTicks    = "ticks"
	MetricSpecials = "specials"
	MetricWinner   = "winner"
)

const eggHuntDefaultStages = race.MinStages

// Spec returns metadata about the egg hunt.
func (g *EggHuntGame) Spec() GameSpec {
	return GameSpec{
		ID:          "egghunt",
		Name:        "Egg Hunt",
		MetricLabel: MetricPlace,
		Metrics:     []string{MetricPlace, MetricTicks, MetricSpecials, MetricWinner},
	}
}

// EggHuntParams are the decoded evaluation parameters.
type EggHuntParams struct {
	StageCount int
	Metric     string
	Color      board.Color
}

// ParseEggHuntParams reads stage_count, metric and color from params,
// applying defaults for anything missing.
func ParseEggHuntParams(params map[string]any) (EggHuntParams, error) {
	p := EggHuntParams{StageCount: eggHuntDefaultStages, Metric: MetricPlace, Color: board.Red}

	switch v := params["stage_count"].(type) {
	case nil:
	case float64:
		if v != math.Trunc(v) || v < race.MinStages || v > race.MaxStages {
			return p, fmt.Errorf("%w: stage_count must be an integer in %d..%d, got %v", ErrInvalidParams, race.MinStages, race.MaxStages, v)
		}
		p.StageCount = int(v)
	case int:
		if v < race.MinStages || v > race.MaxStages {
			return p, fmt.Errorf("%w: stage_count must be an integer in %d..%d, got %d", ErrInvalidParams, race.MinStages, race.MaxStages, v)
		}
		p.StageCount = v
	default:
		return p, fmt.Errorf("%w: stage_count has type %T", ErrInvalidParams, v)
	}

	if m, ok := params["metric"].(string); ok && m != "" {
		switch m {
		case MetricPlace, MetricTicks, MetricSpecials, MetricWinner:
			p.Metric = m
		default:
			return p, fmt.Errorf("%w: unknown metric %q", ErrInvalidParams, m)
		}
	}

	if c, ok := params["color"].(string); ok && c != "" {
		color, err := board.ParseColor(c)
		if err != nil {
			return p, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		p.Color = color
	}
	return p, nil
}

// ValidateParams rejects params ParseEggHuntParams would reject.
func (g *EggHuntGame) ValidateParams(params map[string]any) error {
	_, err := ParseEggHuntParams(params)
	return err
}

// Evaluate generates the race for seeds and nonce.
func (g *EggHuntGame) Evaluate(seeds Seeds, nonce uint64, params map[string]any) (GameResult, error) {
	_, result, err := g.Race(seeds, nonce, params)
	return result, err
}

// Race is Evaluate that also hands back the generated race.
func (g *EggHuntGame) Race(seeds Seeds, nonce uint64, params map[string]any) (*race.Result, GameResult, error) {
	p, err := ParseEggHuntParams(params)
	if err != nil {
		return nil, GameResult{}, err
	}
	res, err := race.Generate(int(nonce), p.StageCount, engine.NewRand(seeds, nonce))
	if err != nil {
		return nil, GameResult{}, err
	}
	return res, EggHuntResult(res, p), nil
}

// EggHuntResult converts a generated race to a GameResult.
func EggHuntResult(res *race.Result, p EggHuntParams) GameResult {
	var metric float64
	switch p.Metric {
	case MetricTicks:
		metric = float64(res.Ticks)
	case MetricSpecials:
		metric = float64(res.Specials())
	case MetricWinner:
		metric = float64(res.Ranking.Winner())
	default:
		metric = float64(res.Ranking[p.Color.ColorIndex()])
	}

	return GameResult{
		Metric:      metric,
		MetricLabel: p.Metric,
		Details: map[string]any{
			"stage_count": res.StageCount,
			"ranking":     res.Ranking,
			"ticks":       res.Ticks,
			"specials":    res.Specials(),
			"winner":      race.Hunters[res.Ranking.Winner()].Name,
			"stages":      res.Stages,
		},
	}
}
