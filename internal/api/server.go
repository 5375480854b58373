package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Scanner        *scan.Scanner
	Logger         *logrus.Logger
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	db           store.DB
	scanner      *scan.Scanner
	errorHandler *ErrorHandler
	audit        *AuditLogger
	logger       *logrus.Logger
	log          *logrus.Entry
	timeout      time.Duration
	startTime    time.Time

	// puzzleMu serialises read-modify-write cycles on stored puzzles.
	puzzleMu sync.Mutex
	// number is the last race id handed out.
	number atomic.Int64
}

// NewServer creates a new API server
func NewServer(db store.DB, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	scanner := opts.Scanner
	if scanner == nil {
		scanner = scan.NewScanner(scan.Config{Logger: logger})
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Server{
		db:           db,
		scanner:      scanner,
		errorHandler: NewErrorHandler(logger),
		audit:        NewAuditLogger(logger),
		logger:       logger,
		log:          logger.WithField("component", "api"),
		timeout:      timeout,
		startTime:    time.Now(),
	}
	s.log.WithField("games_available", len(games.ListGames())).Info("server ready")
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Post("/verify", s.handleVerify)
		r.Post("/scan", s.handleScan)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/hits", s.handleRunHits)

		r.Post("/puzzles", s.handleCreatePuzzle)
		r.Route("/puzzles/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPuzzle)
			r.Get("/stages/{index}", s.handleGetStage)
			r.Get("/log", s.handleGetLog)
			r.Post("/reveal", s.handleReveal)
			r.Post("/answer", s.handleAnswer)
			r.Get("/attempts", s.handleListAttempts)
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
