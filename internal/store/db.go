package store

import (
	"errors"
	"time"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error

	SavePuzzle(p *Puzzle) error
	GetPuzzle(id string) (*Puzzle, error)
	UpdatePuzzleState(id string, revealed, strikes int, phase string) error
	SaveAttempt(a *Attempt) error
	ListAttempts(puzzleID string) ([]Attempt, error)

	SaveRun(run *Run) error
	UpdateRun(run *Run) error
	SaveHits(runID string, hits []Hit) error
	GetRun(id string) (*Run, error)
	ListRuns(query RunsQuery) (*RunsList, error)
	GetRunHits(runID string, page, perPage int) (*HitsPage, error)
}

// Puzzle is a generated egg hunt together with the seeds that produced it
// and the progress made on it.
type Puzzle struct {
	ID             string        `json:"id" db:"id"`
	Number         int           `json:"number" db:"number"`
	ModuleCount    int           `json:"module_count" db:"module_count"`
	StageCount     int           `json:"stage_count" db:"stage_count"`
	Skip           int           `json:"skip" db:"skip"`
	ServerSeed     string        `json:"-" db:"server_seed"`
	ServerSeedHash string        `json:"server_seed_hash" db:"server_seed_hash"`
	ClientSeed     string        `json:"client_seed" db:"client_seed"`
	Nonce          uint64        `json:"nonce" db:"nonce"`
	Ranking        race.Ranking  `json:"-" db:"ranking"`
	Stages         []board.Stage `json:"-" db:"stages"`
	Log            string        `json:"-" db:"log"`
	Revealed       int           `json:"revealed" db:"revealed"`
	Strikes        int           `json:"strikes" db:"strikes"`
	Phase          string        `json:"phase" db:"phase"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Attempt is one submitted answer.
type Attempt struct {
	ID        int64     `json:"id" db:"id"`
	PuzzleID  string    `json:"puzzle_id" db:"puzzle_id"`
	Submitted [4]int    `json:"submitted" db:"submitted"`
	Correct   bool      `json:"correct" db:"correct"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	Game    string `json:"game,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// HitsPage represents paginated hits response with delta nonce calculation
type HitsPage struct {
	Hits       []HitWithDelta `json:"hits"`
	TotalCount int            `json:"totalCount"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalPages int            `json:"totalPages"`
}

// Run represents a scan run
type Run struct {
	ID             string    `json:"id" db:"id"`
	Game           string    `json:"game" db:"game"`
	ServerSeedHash string    `json:"server_seed_hash" db:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed" db:"client_seed"`
	NonceStart     uint64    `json:"nonce_start" db:"nonce_start"`
	NonceEnd       uint64    `json:"nonce_end" db:"nonce_end"`
	ParamsJSON     string    `json:"params_json" db:"params_json"`
	TargetOp       string    `json:"target_op" db:"target_op"`
	TargetVal      float64   `json:"target_val" db:"target_val"`
	TargetVal2     float64   `json:"target_val2" db:"target_val2"`
	Tolerance      float64   `json:"tolerance" db:"tolerance"`
	HitLimit       int       `json:"hit_limit" db:"hit_limit"`
	Script         string    `json:"script,omitempty" db:"script"`
	TimedOut       bool      `json:"timed_out" db:"timed_out"`
	HitCount       int       `json:"hit_count" db:"hit_count"`
	TotalEvaluated uint64    `json:"total_evaluated" db:"total_evaluated"`
	SummaryMin     *float64  `json:"summary_min" db:"summary_min"`
	SummaryMax     *float64  `json:"summary_max" db:"summary_max"`
	SummaryMean    *float64  `json:"summary_mean" db:"summary_mean"`
	WinShareJSON   string    `json:"win_share_json" db:"win_share_json"`
	EngineVersion  string    `json:"engine_version" db:"engine_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Hit represents a single matching race
type Hit struct {
	ID      int64        `json:"id" db:"id"`
	RunID   string       `json:"run_id" db:"run_id"`
	Nonce   uint64       `json:"nonce" db:"nonce"`
	Metric  float64      `json:"metric" db:"metric"`
	Ranking race.Ranking `json:"ranking" db:"ranking"`
}

// HitWithDelta represents a hit with calculated delta nonce
type HitWithDelta struct {
	Hit
	DeltaNonce *uint64 `json:"delta_nonce,omitempty"`
}
