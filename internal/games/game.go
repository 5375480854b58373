// Package games exposes seeded race generation behind an evaluable game
// interface so that races can be verified and scanned by seed and nonce.
package games

import (
	"errors"
	"sort"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// ErrInvalidParams rejects evaluation parameters a game cannot use.
var ErrInvalidParams = errors.New("invalid game params")

// Seeds is re-exported so callers need only this package.
type Seeds = engine.Seeds

// GameSpec describes a registered game.
type GameSpec struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MetricLabel string   `json:"metric_label"`
	Metrics     []string `json:"metrics,omitempty"`
}

// GameResult is the outcome of one evaluation.
type GameResult struct {
	Metric      float64 `json:"metric"`
	MetricLabel string  `json:"metric_label"`
	Details     any     `json:"details,omitempty"`
}

// Game is a seeded, deterministic game.
type Game interface {
	Spec() GameSpec
	Evaluate(seeds Seeds, nonce uint64, params map[string]any) (GameResult, error)
}

// RaceGame is a Game whose evaluations are backed by a generated race.
type RaceGame interface {
	Game
	Race(seeds Seeds, nonce uint64, params map[string]any) (*race.Result, GameResult, error)
}

// ParamValidator is implemented by games that can reject params before any
// nonce is evaluated.
type ParamValidator interface {
	ValidateParams(params map[string]any) error
}

// ValidateParams checks params against game when it supports validation.
func ValidateParams(game Game, params map[string]any) error {
	if v, ok := game.(ParamValidator); ok {
		return v.ValidateParams(params)
	}
	return nil
}

var registry = make(map[string]Game)

// RegisterGame adds a game to the registry.
func RegisterGame(game Game) {
	registry[game.Spec().ID] = game
}

// GetGame retrieves a game by id.
func GetGame(id string) (Game, bool) {
	game, exists := registry[id]
	return game, exists
}

// ListGames returns every registered spec sorted by id.
func ListGames() []GameSpec {
	specs := make([]GameSpec, 0, len(registry))
	for _, g := range registry {
		specs = append(specs, g.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

func init() {
	RegisterGame(&EggHuntGame{})
}
