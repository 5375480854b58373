// Package puzzle is the host side of an egg hunt: it sizes the race from the
// surrounding module count, reveals stages as other modules are solved, and
// routes submitted answers to strikes or a solve.
package puzzle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/answer"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
)

var (
	ErrModuleCount = errors.New("module count must not be negative")
	ErrNotReady    = errors.New("stages are still being revealed")
	ErrSolved      = errors.New("puzzle already solved")
	ErrIncomplete  = errors.New("answer is incomplete")
)

// Phase is where the instance is in its lifecycle.
type Phase string

const (
	PhaseViewing Phase = "viewing"
	PhaseInput   Phase = "input"
	PhaseSolved  Phase = "solved"
)

// Outcome is the result of a submission.
type Outcome string

const (
	OutcomeStrike Outcome = "strike"
	OutcomeSolve  Outcome = "solve"
)

// StageCount sizes a race for moduleCount solvable modules. Fewer than
// race.MinStages modules are padded, and skip reports how many stages are
// revealed up front to make up the difference.
func StageCount(moduleCount int) (stages, skip int, err error) {
	if moduleCount < 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrModuleCount, moduleCount)
	}
	if moduleCount < race.MinStages {
		return race.MinStages, race.MinStages - moduleCount, nil
	}
	return moduleCount, 0, nil
}

// Config describes a new instance.
type Config struct {
	ID          int
	ModuleCount int
	Logger      *logrus.Logger
}

// Instance is one puzzle. It is safe for concurrent use.
type Instance struct {
	mu       sync.Mutex
	result   *race.Result
	skip     int
	revealed int
	cursor   int
	input    answer.Input
	strikes  int
	phase    Phase
	log      *logrus.Entry
}

// New generates the race and returns an instance showing the first
// revealed stage.
func New(cfg Config, src race.Source) (*Instance, error) {
	stages, skip, err := StageCount(cfg.ModuleCount)
	if err != nil {
		return nil, err
	}
	res, err := race.Generate(cfg.ID, stages, src)
	if err != nil {
		return nil, fmt.Errorf("generate race: %w", err)
	}
	in := restore(cfg, res, skip)
	if in.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, line := range race.Narrate(res) {
			in.log.Debug(line)
		}
	}
	return in, nil
}

func restore(cfg Config, res *race.Result, skip int) *Instance {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	in := &Instance{
		result: res,
		skip:   skip,
		phase:  PhaseViewing,
		log:    logger.WithFields(logrus.Fields{"component": "puzzle", "puzzle": cfg.ID}),
	}
	in.reveal(skip)
	return in
}

// State is the progress of an instance that outlives the process.
type State struct {
	Revealed int   `json:"revealed"`
	Strikes  int   `json:"strikes"`
	Phase    Phase `json:"phase"`
}

// Resume rebuilds an instance and replays saved progress onto it.
func Resume(cfg Config, res *race.Result, skip int, st State) *Instance {
	in := restore(cfg, res, skip)
	if st.Revealed > in.revealed {
		in.revealed = min(st.Revealed, res.StageCount)
		in.cursor = in.revealed
	}
	in.strikes = st.Strikes
	switch {
	case st.Phase == PhaseSolved:
		in.phase = PhaseSolved
	case in.revealed == res.StageCount:
		in.phase = PhaseInput
	}
	return in
}

// State snapshots the instance progress.
func (in *Instance) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return State{Revealed: in.revealed, Strikes: in.strikes, Phase: in.phase}
}

// Result returns the generated race.
func (in *Instance) Result() *race.Result { return in.result }

// Skip returns the number of padded stages revealed up front.
func (in *Instance) Skip() int { return in.skip }

// Phase returns the current phase.
func (in *Instance) Phase() Phase {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.phase
}

// Strikes returns how many wrong answers were submitted.
func (in *Instance) Strikes() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.strikes
}

// Revealed returns the highest stage index the viewer may show.
func (in *Instance) Revealed() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.revealed
}

// Reveal is fed the host's solved-module count and reveals the matching
// stage. It reports whether anything new became visible.
func (in *Instance) Reveal(solved int) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.reveal(solved + in.skip)
}

func (in *Instance) reveal(target int) bool {
	last := in.result.StageCount
	if target > last {
		target = last
	}
	if target <= in.revealed {
		return false
	}
	in.revealed = target
	in.cursor = target
	if target == last && in.phase == PhaseViewing {
		in.phase = PhaseInput
		in.log.WithField("stages", last).Info("all stages revealed, awaiting answer")
		return true
	}
	in.log.WithField("stage", target).Debug("stage revealed")
	return true
}

// Current returns the viewer position and its stage.
func (in *Instance) Current() (int, board.Stage) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cursor, in.result.Stages[in.cursor]
}

// Stage returns stage i if it has been revealed.
func (in *Instance) Stage(i int) (board.Stage, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if i < 0 || i > in.revealed {
		return board.Stage{}, false
	}
	return in.result.Stages[i], true
}

// Next moves the viewer forward within the revealed stages.
func (in *Instance) Next() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cursor < in.revealed {
		in.cursor++
	}
	return in.cursor
}

// Prev moves the viewer back.
func (in *Instance) Prev() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cursor > 0 {
		in.cursor--
	}
	return in.cursor
}

// Input exposes the answer input under the instance lock.
func (in *Instance) Input(fn func(*answer.Input)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	fn(&in.input)
}

// SubmitInput submits the assembled input.
func (in *Instance) SubmitInput() (Outcome, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.input.Complete() {
		return "", ErrIncomplete
	}
	return in.submit(in.input.Slots())
}

// Submit checks a ranking. A wrong answer is a strike and clears the input;
// a right one solves the puzzle.
func (in *Instance) Submit(submitted [4]int) (Outcome, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.submit(submitted)
}

func (in *Instance) submit(submitted [4]int) (Outcome, error) {
	switch in.phase {
	case PhaseViewing:
		return "", ErrNotReady
	case PhaseSolved:
		return "", ErrSolved
	}

	entry := in.log.WithField("submitted", submitted)
	in.input.Reset()
	if answer.Check(in.result.Ranking, submitted) {
		in.phase = PhaseSolved
		entry.Info("solved")
		return OutcomeSolve, nil
	}
	in.strikes++
	entry.WithField("expected", in.result.Ranking).Warn("strike")
	return OutcomeStrike, nil
}

// Watch polls solved every interval and reveals stages until every stage is
// visible or ctx is done.
func (in *Instance) Watch(ctx context.Context, interval time.Duration, solved func() int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if in.Phase() != PhaseViewing {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			in.Reveal(solved())
		}
	}
}
