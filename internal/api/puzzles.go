package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

// handleCreatePuzzle generates and stores a new puzzle.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	var req CreatePuzzleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateCreatePuzzleRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	serverSeed, err := engine.NewServerSeed()
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	number := int(s.number.Add(1))
	nonce := uint64(number)
	if req.Nonce != nil {
		nonce = *req.Nonce
	}
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed = uuid.NewString()
	}
	seeds := engine.Seeds{Server: serverSeed, Client: clientSeed}

	cfg := puzzle.Config{ID: number, ModuleCount: req.ModuleCount, Logger: s.logger}
	in, err := puzzle.New(cfg, engine.NewRand(seeds, nonce))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	res := in.Result()
	st := in.State()
	p := &store.Puzzle{
		Number:         number,
		ModuleCount:    req.ModuleCount,
		StageCount:     res.StageCount,
		Skip:           in.Skip(),
		ServerSeed:     serverSeed,
		ServerSeedHash: seeds.ServerHash(),
		ClientSeed:     clientSeed,
		Nonce:          nonce,
		Ranking:        res.Ranking,
		Stages:         res.Stages,
		Log:            res.Log(),
		Revealed:       st.Revealed,
		Strikes:        st.Strikes,
		Phase:          string(st.Phase),
	}
	if err := s.db.SavePuzzle(p); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.audit.PuzzleCreated(r, p.ID, number, serverSeed)
	s.log.WithFields(logrus.Fields{
		"puzzle":      p.ID,
		"stage_count": p.StageCount,
		"skip":        p.Skip,
	}).Debug("puzzle stored")
	s.writeJSON(w, http.StatusCreated, puzzleResponse(p))
}

// loadPuzzle reads a stored puzzle and resumes its instance.
func (s *Server) loadPuzzle(id string) (*store.Puzzle, *puzzle.Instance, error) {
	p, err := s.db.GetPuzzle(id)
	if err != nil {
		return nil, nil, err
	}
	if len(p.Stages) != p.StageCount+1 {
		return nil, nil, fmt.Errorf("puzzle %s: stored %d stages for a %d stage race", id, len(p.Stages), p.StageCount)
	}
	res := &race.Result{ID: p.Number, StageCount: p.StageCount, Stages: p.Stages, Ranking: p.Ranking}
	cfg := puzzle.Config{ID: p.Number, ModuleCount: p.ModuleCount, Logger: s.logger}
	st := puzzle.State{Revealed: p.Revealed, Strikes: p.Strikes, Phase: puzzle.Phase(p.Phase)}
	return p, puzzle.Resume(cfg, res, p.Skip, st), nil
}

// saveState writes the instance progress back onto p.
func (s *Server) saveState(p *store.Puzzle, in *puzzle.Instance) error {
	st := in.State()
	if err := s.db.UpdatePuzzleState(p.ID, st.Revealed, st.Strikes, string(st.Phase)); err != nil {
		return err
	}
	p.Revealed, p.Strikes, p.Phase = st.Revealed, st.Strikes, string(st.Phase)
	return nil
}

func puzzleResponse(p *store.Puzzle) PuzzleResponse {
	resp := PuzzleResponse{Puzzle: p, EngineVersion: EngineVersion}
	if p.Phase == string(puzzle.PhaseSolved) {
		ranking := p.Ranking
		resp.ServerSeed = p.ServerSeed
		resp.Ranking = &ranking
	}
	return resp
}

// handleGetPuzzle returns a puzzle and its progress.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetPuzzle(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, puzzleResponse(p))
}

// handleGetStage returns one stage if the viewer may show it.
func (s *Server) handleGetStage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "index", "stage index must be an integer")
		return
	}

	p, in, err := s.loadPuzzle(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if index < 0 || index > p.StageCount {
		s.errorHandler.HandleStatus(w, r, http.StatusNotFound, ErrTypeNotFound,
			fmt.Sprintf("stage %d does not exist (0..%d)", index, p.StageCount))
		return
	}
	stage, ok := in.Stage(index)
	if !ok {
		s.errorHandler.HandleStatus(w, r, http.StatusForbidden, ErrTypeNotRevealed,
			fmt.Sprintf("stage %d has not been revealed", index))
		return
	}

	s.writeJSON(w, http.StatusOK, StageResponse{
		PuzzleID: p.ID,
		Index:    index,
		Stage:    stage,
		Dump:     stage.Dump(),
	})
}

// handleGetLog returns the race narration once the puzzle is solved.
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetPuzzle(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if p.Phase != string(puzzle.PhaseSolved) {
		s.errorHandler.HandleStatus(w, r, http.StatusForbidden, ErrTypeNotRevealed,
			"the race log is available once the puzzle is solved")
		return
	}
	s.writeJSON(w, http.StatusOK, LogResponse{PuzzleID: p.ID, Lines: strings.Split(p.Log, "\n")})
}

// handleReveal feeds the host's solved-module count to the viewer.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req RevealRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Solved < 0 {
		s.errorHandler.HandleValidationError(w, r, "solved", "solved must be >= 0")
		return
	}

	s.puzzleMu.Lock()
	defer s.puzzleMu.Unlock()

	p, in, err := s.loadPuzzle(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if in.Reveal(req.Solved) {
		if err := s.saveState(p, in); err != nil {
			s.errorHandler.HandleError(w, r, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, puzzleResponse(p))
}

// handleAnswer submits a ranking and records the attempt.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateAnswerRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.puzzleMu.Lock()
	defer s.puzzleMu.Unlock()

	p, in, err := s.loadPuzzle(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	outcome, err := in.Submit(req.Ranking)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	attempt := &store.Attempt{PuzzleID: p.ID, Submitted: req.Ranking, Correct: outcome == puzzle.OutcomeSolve}
	if err := s.db.SaveAttempt(attempt); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if err := s.saveState(p, in); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.audit.Answer(r, p.ID, outcome, in.Strikes())
	s.writeJSON(w, http.StatusOK, AnswerResponse{
		PuzzleID: p.ID,
		Outcome:  outcome,
		Strikes:  in.Strikes(),
		Phase:    in.Phase(),
	})
}

// handleListAttempts lists every answer submitted to a puzzle.
func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetPuzzle(id); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	attempts, err := s.db.ListAttempts(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AttemptsResponse{PuzzleID: id, Attempts: attempts})
}
