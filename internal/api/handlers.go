package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

const defaultScanTimeoutMs = 60_000

// handleListGames returns available games with their metrics
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:         games.ListGames(),
		EngineVersion: EngineVersion,
	})
}

// handleVerify regenerates a single nonce. Race-backed games also return
// the race and its narration.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateVerifyRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	game, _ := games.GetGame(req.Game)
	entry := s.log.WithFields(logrus.Fields{
		"game":        req.Game,
		"server_hash": hashSeed(req.Seeds.Server),
		"client_hash": hashSeed(req.Seeds.Client),
		"nonce":       req.Nonce,
	})

	response := VerifyResponse{Nonce: req.Nonce, EngineVersion: EngineVersion, Echo: req}
	if rg, ok := game.(games.RaceGame); ok {
		res, result, err := rg.Race(req.Seeds, req.Nonce, req.Params)
		if err != nil {
			s.errorHandler.HandleError(w, r, evaluationError{game: req.Game, err: err})
			return
		}
		response.GameResult = result
		response.Race = res
		response.Log = race.Narrate(res)
	} else {
		result, err := game.Evaluate(req.Seeds, req.Nonce, req.Params)
		if err != nil {
			s.errorHandler.HandleError(w, r, evaluationError{game: req.Game, err: err})
			return
		}
		response.GameResult = result
	}

	entry.WithField("metric", response.GameResult.Metric).Debug("verify completed")
	s.audit.Verify(r, req.Game, req.Seeds, req.Nonce)
	s.writeJSON(w, http.StatusOK, response)
}

// handleScan runs a scan and records it as a run with its hits.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateScanRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if req.TimeoutMs == 0 {
		req.TimeoutMs = defaultScanTimeoutMs
	}

	s.audit.Scan(r, &req)
	entry := s.log.WithFields(logrus.Fields{
		"game":        req.Game,
		"server_hash": hashSeed(req.Seeds.Server),
	})

	result, err := s.scanner.Scan(r.Context(), convertToScanRequest(&req))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	// The request deadline passing is not the scan's own timeout_ms; the
	// partial result is dropped rather than recorded as a run.
	if err := r.Context().Err(); errors.Is(err, context.DeadlineExceeded) {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	response := ScanResponse{
		Hits:          result.Hits,
		Summary:       result.Summary,
		EngineVersion: EngineVersion,
		Echo:          req,
	}
	response.Echo.Seeds.Server = ""

	if s.db != nil {
		runID, err := s.saveRun(&req, result)
		if err != nil {
			s.errorHandler.HandleError(w, r, err)
			return
		}
		response.RunID = runID
	}

	entry.WithFields(logrus.Fields{
		"hits_found":      result.Summary.HitsFound,
		"total_evaluated": result.Summary.TotalEvaluated,
		"timed_out":       result.Summary.TimedOut,
		"run_id":          response.RunID,
	}).Info("scan completed")
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) saveRun(req *ScanRequest, result *scan.ScanResult) (string, error) {
	params, err := json.Marshal(req.Params)
	if err != nil || req.Params == nil {
		params = []byte("{}")
	}
	winShare, err := json.Marshal(result.Summary.WinShare)
	if err != nil || result.Summary.WinShare == nil {
		winShare = []byte("{}")
	}

	run := &store.Run{
		Game:           req.Game,
		ServerSeedHash: req.Seeds.ServerHash(),
		ClientSeed:     req.Seeds.Client,
		NonceStart:     req.NonceStart,
		NonceEnd:       req.NonceEnd,
		ParamsJSON:     string(params),
		TargetOp:       req.TargetOp,
		TargetVal:      req.TargetVal,
		TargetVal2:     req.TargetVal2,
		Tolerance:      req.Tolerance,
		HitLimit:       req.Limit,
		Script:         req.Script,
		TimedOut:       result.Summary.TimedOut,
		HitCount:       result.Summary.HitsFound,
		TotalEvaluated: result.Summary.TotalEvaluated,
		WinShareJSON:   string(winShare),
		EngineVersion:  result.EngineVersion,
	}
	if result.Summary.HitsFound > 0 {
		minMetric, maxMetric, mean := result.Summary.MinMetric, result.Summary.MaxMetric, result.Summary.MeanMetric
		run.SummaryMin, run.SummaryMax, run.SummaryMean = &minMetric, &maxMetric, &mean
	}
	if err := s.db.SaveRun(run); err != nil {
		return "", err
	}

	hits := make([]store.Hit, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = store.Hit{Nonce: h.Nonce, Metric: h.Metric, Ranking: h.Ranking}
	}
	if err := s.db.SaveHits(run.ID, hits); err != nil {
		return "", err
	}
	return run.ID, nil
}

// handleListRuns lists recorded scans, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "page", "page must be an integer")
		return
	}
	perPage, err := queryInt(q.Get("perPage"), 50)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "perPage", "perPage must be an integer")
		return
	}

	runs, err := s.db.ListRuns(store.RunsQuery{Game: q.Get("game"), Page: page, PerPage: perPage})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one recorded scan.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleRunHits pages through a run's hits in nonce order.
func (s *Server) handleRunHits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetRun(id); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "page", "page must be an integer")
		return
	}
	perPage, err := queryInt(q.Get("perPage"), 100)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "perPage", "perPage must be an integer")
		return
	}

	hits, err := s.db.GetRunHits(id, page, perPage)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hits)
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
