package api

import (
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidSeed   = "invalid_seed"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"

	// Game-related errors
	ErrTypeGameNotFound   = "game_not_found"
	ErrTypeGameEvaluation = "game_evaluation_error"

	// Puzzle flow errors
	ErrTypeNotFound    = "not_found"
	ErrTypeNotRevealed = "not_revealed"
	ErrTypeNotReady    = "not_ready"
	ErrTypeSolved      = "already_solved"

	// System errors
	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategoryPuzzle     ErrorCategory = "puzzle"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidSeed, ErrTypeInvalidParams, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeGameEvaluation:
		return CategoryGame
	case ErrTypeNotFound, ErrTypeNotRevealed, ErrTypeNotReady, ErrTypeSolved:
		return CategoryPuzzle
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// ScanRequest represents a scan operation request
type ScanRequest struct {
	Game       string         `json:"game"`
	Seeds      games.Seeds    `json:"seeds"`
	NonceStart uint64         `json:"nonce_start"`
	NonceEnd   uint64         `json:"nonce_end"`
	Params     map[string]any `json:"params"`
	TargetOp   string         `json:"target_op"` // "ge", "le", "eq", "gt", "lt", "between", "outside"
	TargetVal  float64        `json:"target_val"`
	TargetVal2 float64        `json:"target_val2,omitempty"`
	Tolerance  float64        `json:"tolerance"`
	Limit      int            `json:"limit,omitempty"`
	TimeoutMs  int            `json:"timeout_ms,omitempty"`
	Script     string         `json:"script,omitempty"`
}

// ScanResponse represents the complete scan response
type ScanResponse struct {
	RunID         string       `json:"run_id,omitempty"`
	Hits          []scan.Hit   `json:"hits"`
	Summary       scan.Summary `json:"summary"`
	EngineVersion string       `json:"engine_version"`
	Echo          ScanRequest  `json:"echo"`
}

// VerifyRequest represents a single nonce verification request
type VerifyRequest struct {
	Game   string         `json:"game"`
	Seeds  games.Seeds    `json:"seeds"`
	Nonce  uint64         `json:"nonce"`
	Params map[string]any `json:"params,omitempty"`
}

// VerifyResponse represents a single nonce verification response
type VerifyResponse struct {
	Nonce         uint64           `json:"nonce"`
	GameResult    games.GameResult `json:"game_result"`
	Race          *race.Result     `json:"race,omitempty"`
	Log           []string         `json:"log,omitempty"`
	EngineVersion string           `json:"engine_version"`
	Echo          VerifyRequest    `json:"echo"`
}

// GamesResponse represents the games metadata response
type GamesResponse struct {
	Games         []games.GameSpec `json:"games"`
	EngineVersion string           `json:"engine_version"`
}

// CreatePuzzleRequest asks for a new puzzle sized for ModuleCount
// solvable modules. Missing seeds and nonce are filled in by the server.
type CreatePuzzleRequest struct {
	ModuleCount int     `json:"module_count"`
	ClientSeed  string  `json:"client_seed,omitempty"`
	Nonce       *uint64 `json:"nonce,omitempty"`
}

// PuzzleResponse is a stored puzzle. The server seed and ranking are only
// disclosed once the puzzle is solved.
type PuzzleResponse struct {
	*store.Puzzle
	ServerSeed    string        `json:"server_seed,omitempty"`
	Ranking       *race.Ranking `json:"ranking,omitempty"`
	EngineVersion string        `json:"engine_version"`
}

// StageResponse is one revealed stage.
type StageResponse struct {
	PuzzleID string      `json:"puzzle_id"`
	Index    int         `json:"index"`
	Stage    board.Stage `json:"stage"`
	Dump     string      `json:"dump"`
}

// LogResponse is the narrated race.
type LogResponse struct {
	PuzzleID string   `json:"puzzle_id"`
	Lines    []string `json:"lines"`
}

// RevealRequest carries the host's solved-module count.
type RevealRequest struct {
	Solved int `json:"solved"`
}

// AnswerRequest is a submitted ranking in Red, Green, Blue, Yellow order.
type AnswerRequest struct {
	Ranking [4]int `json:"ranking"`
}

// AnswerResponse reports the outcome of a submission.
type AnswerResponse struct {
	PuzzleID string         `json:"puzzle_id"`
	Outcome  puzzle.Outcome `json:"outcome"`
	Strikes  int            `json:"strikes"`
	Phase    puzzle.Phase   `json:"phase"`
}

// AttemptsResponse lists a puzzle's submissions.
type AttemptsResponse struct {
	PuzzleID string          `json:"puzzle_id"`
	Attempts []store.Attempt `json:"attempts"`
}
