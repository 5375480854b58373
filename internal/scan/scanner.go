// Package scan searches nonce ranges for races that satisfy a metric target
// and, optionally, a script predicate.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scripting"
)

// EngineVersion is stamped on every result.
const EngineVersion = "egghunt-1"

// maxScriptLogs caps the script log lines returned with a result.
const maxScriptLogs = 100

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// Valid reports whether op is a known operator.
func (op TargetOp) Valid() bool {
	switch op {
	case OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside:
		return true
	}
	return false
}

// ScanRequest represents a scan operation request
type ScanRequest struct {
	Game       string         `json:"game"`
	Seeds      games.Seeds    `json:"seeds"`
	NonceStart uint64         `json:"nonce_start"`
	NonceEnd   uint64         `json:"nonce_end"`
	Params     map[string]any `json:"params"`
	TargetOp   TargetOp       `json:"target_op"`
	TargetVal  float64        `json:"target_val"`
	TargetVal2 float64        `json:"target_val2,omitempty"` // for "between" and "outside"
	Tolerance  float64        `json:"tolerance"`
	Limit      int            `json:"limit,omitempty"`
	TimeoutMs  int            `json:"timeout_ms,omitempty"`
	Script     string         `json:"script,omitempty"`
}

// Hit represents a single matching race
type Hit struct {
	Nonce   uint64       `json:"nonce"`
	Metric  float64      `json:"metric"`
	Ranking race.Ranking `json:"ranking"`
}

// Summary contains aggregate statistics over the hits
type Summary struct {
	TotalEvaluated uint64                     `json:"total_evaluated"`
	HitsFound      int                        `json:"hits_found"`
	MinMetric      float64                    `json:"min_metric"`
	MaxMetric      float64                    `json:"max_metric"`
	MeanMetric     float64                    `json:"mean_metric"`
	WinShare       map[string]decimal.Decimal `json:"win_share,omitempty"`
	ScriptErrors   uint64                     `json:"script_errors,omitempty"`
	ScriptLogs     []string                   `json:"script_logs,omitempty"`
	TimedOut       bool                       `json:"timed_out,omitempty"`
}

// ScanResult contains the complete scan results
type ScanResult struct {
	Hits          []Hit       `json:"hits"`
	Summary       Summary     `json:"summary"`
	EngineVersion string      `json:"engine_version"`
	Echo          ScanRequest `json:"echo"`
}

// ScanJob represents a batch of nonces to process
type ScanJob struct {
	NonceStart uint64
	NonceEnd   uint64
}

// Config tunes a Scanner. Zero values pick defaults.
type Config struct {
	Workers       int
	BatchSize     uint64
	ScriptTimeout time.Duration
	Logger        *logrus.Logger
}

// Scanner performs parallel scanning across nonce ranges
type Scanner struct {
	workerCount   int
	batchSize     uint64
	scriptTimeout time.Duration
	log           *logrus.Entry
}

// NewScanner creates a scanner; by default one worker per GOMAXPROCS.
func NewScanner(cfg Config) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1024
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Scanner{
		workerCount:   cfg.Workers,
		batchSize:     cfg.BatchSize,
		scriptTimeout: cfg.ScriptTimeout,
		log:           logger.WithField("component", "scan"),
	}
}

// TargetEvaluator handles target condition evaluation with tolerance
type TargetEvaluator struct {
	op        TargetOp
	val1      float64
	val2      float64
	tolerance float64
}

// NewTargetEvaluator creates a new target evaluator
func NewTargetEvaluator(op TargetOp, val1, val2, tolerance float64) *TargetEvaluator {
	return &TargetEvaluator{op: op, val1: val1, val2: val2, tolerance: tolerance}
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric float64) bool {
	switch te.op {
	case OpEqual:
		return abs(metric-te.val1) <= te.tolerance
	case OpGreater:
		return metric > te.val1+te.tolerance
	case OpGreaterEqual:
		return metric >= te.val1-te.tolerance
	case OpLess:
		return metric < te.val1-te.tolerance
	case OpLessEqual:
		return metric <= te.val1+te.tolerance
	case OpBetween:
		return metric >= te.val1-te.tolerance && metric <= te.val2+te.tolerance
	case OpOutside:
		return metric < te.val1-te.tolerance || metric > te.val2+te.tolerance
	default:
		return false
	}
}

// Scan evaluates every nonce in [NonceStart, NonceEnd] and returns the hits
// ordered by nonce. With a limit the result holds the lowest-nonce hits, and
// nonces above the last of them are skipped. The timeout ends the scan early.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	game, exists := games.GetGame(req.Game)
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, req.Game)
	}
	if req.NonceEnd < req.NonceStart {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, req.NonceStart, req.NonceEnd)
	}
	if !req.TargetOp.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, req.TargetOp)
	}
	if err := games.ValidateParams(game, req.Params); err != nil {
		return nil, err
	}

	var program *scripting.Program
	if req.Script != "" {
		if _, ok := game.(games.RaceGame); !ok {
			return nil, fmt.Errorf("%w: %s", ErrScriptUnsupported, req.Game)
		}
		var err error
		if program, err = scripting.Compile(req.Script); err != nil {
			return nil, err
		}
	}

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	start := time.Now()
	evaluator := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2, req.Tolerance)
	jobs := make(chan ScanJob, s.workerCount*2)
	hits := make(chan Hit, 1000)

	var evaluated, scriptErrors uint64
	var ceiling atomic.Uint64
	ceiling.Store(req.NonceEnd)
	workers := make([]*ScanWorker, s.workerCount)
	for i := range workers {
		workers[i] = &ScanWorker{
			id:           i,
			jobs:         jobs,
			hits:         hits,
			game:         game,
			seeds:        req.Seeds,
			params:       req.Params,
			evaluator:    evaluator,
			ceiling:      &ceiling,
			evaluated:    &evaluated,
			scriptErrors: &scriptErrors,
		}
		if program != nil {
			workers[i].vm = scripting.NewVM(s.scriptTimeout)
			if err := workers[i].vm.Load(program); err != nil {
				return nil, err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.generateJobs(gctx, jobs, req.NonceStart, &ceiling)
		return nil
	})
	for _, worker := range workers {
		g.Go(func() error { return worker.Run(gctx) })
	}

	var werr error
	go func() {
		werr = g.Wait()
		close(hits)
	}()

	collector := &ResultCollector{hits: hits, limit: req.Limit, ceiling: &ceiling}
	result := collector.Collect()
	if werr != nil && !errors.Is(werr, context.Canceled) && !errors.Is(werr, context.DeadlineExceeded) {
		return nil, werr
	}

	result.Summary = calculateSummary(result.Hits, atomic.LoadUint64(&evaluated), errors.Is(ctx.Err(), context.DeadlineExceeded))
	result.Summary.ScriptErrors = atomic.LoadUint64(&scriptErrors)
	for _, worker := range workers {
		if worker.vm == nil {
			continue
		}
		for _, entry := range worker.vm.GetLogs() {
			if len(result.Summary.ScriptLogs) == maxScriptLogs {
				break
			}
			result.Summary.ScriptLogs = append(result.Summary.ScriptLogs, entry.Message)
		}
		worker.vm.ClearLogs()
	}
	result.EngineVersion = EngineVersion
	result.Echo = req

	s.log.WithFields(logrus.Fields{
		"game":      req.Game,
		"evaluated": result.Summary.TotalEvaluated,
		"hits":      result.Summary.HitsFound,
		"timed_out": result.Summary.TimedOut,
		"elapsed":   time.Since(start).String(),
	}).Info("scan finished")

	return result, nil
}

// generateJobs creates job batches for the workers up to the ceiling, which
// may drop while it runs.
func (s *Scanner) generateJobs(ctx context.Context, jobs chan<- ScanJob, start uint64, ceiling *atomic.Uint64) {
	defer close(jobs)

	for current := start; ; {
		end := ceiling.Load()
		if current > end {
			return
		}
		batchEnd := current + s.batchSize - 1
		if batchEnd > end || batchEnd < current {
			batchEnd = end
		}

		select {
		case jobs <- ScanJob{NonceStart: current, NonceEnd: batchEnd}:
		case <-ctx.Done():
			return
		}
		if batchEnd == end {
			return
		}
		current = batchEnd + 1
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
