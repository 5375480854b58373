package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
)

// AuditLogger records operations that touch seeds or answers. Seeds are only
// ever logged as truncated hashes and answers are never logged.
type AuditLogger struct {
	log *logrus.Entry
}

// NewAuditLogger creates an audit logger writing through logger.
func NewAuditLogger(logger *logrus.Logger) *AuditLogger {
	return &AuditLogger{log: logger.WithField("component", "audit")}
}

func (a *AuditLogger) entry(r *http.Request, op string) *logrus.Entry {
	return a.log.WithFields(logrus.Fields{
		"op":         op,
		"request_id": middleware.GetReqID(r.Context()),
	})
}

// Scan records a scan request.
func (a *AuditLogger) Scan(r *http.Request, req *ScanRequest) {
	a.entry(r, "scan").WithFields(logrus.Fields{
		"game":        req.Game,
		"server_hash": hashSeed(req.Seeds.Server),
		"client_hash": hashSeed(req.Seeds.Client),
		"nonce_start": req.NonceStart,
		"nonce_end":   req.NonceEnd,
		"target_op":   req.TargetOp,
		"target_val":  req.TargetVal,
		"limit":       req.Limit,
		"timeout_ms":  req.TimeoutMs,
		"params":      sanitizeParams(req.Params),
		"scripted":    req.Script != "",
	}).Info("scan requested")
}

// Verify records a single-nonce verification.
func (a *AuditLogger) Verify(r *http.Request, game string, seeds games.Seeds, nonce uint64) {
	a.entry(r, "verify").WithFields(logrus.Fields{
		"game":        game,
		"server_hash": hashSeed(seeds.Server),
		"client_hash": hashSeed(seeds.Client),
		"nonce":       nonce,
	}).Info("race verified")
}

// PuzzleCreated records a new puzzle. Its server seed is only ever logged
// as a hash.
func (a *AuditLogger) PuzzleCreated(r *http.Request, id string, number int, serverSeed string) {
	a.entry(r, "create_puzzle").WithFields(logrus.Fields{
		"puzzle_id":   id,
		"number":      number,
		"server_hash": hashSeed(serverSeed),
	}).Info("puzzle created")
}

// Answer records the outcome of a submission without the submitted places.
func (a *AuditLogger) Answer(r *http.Request, puzzleID string, outcome puzzle.Outcome, strikes int) {
	e := a.entry(r, "answer").WithFields(logrus.Fields{
		"puzzle_id": puzzleID,
		"outcome":   outcome,
		"strikes":   strikes,
	})
	if outcome == puzzle.OutcomeStrike {
		e.Warn("answer rejected")
		return
	}
	e.Info("answer accepted")
}

// hashSeed returns a short SHA-256 prefix of seed for logs.
func hashSeed(seed string) string {
	if seed == "" {
		return "empty"
	}
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:])[:16]
}

// sanitizeParams hashes seed-like values and redacts secrets.
func sanitizeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	sanitized := make(map[string]any, len(params))
	for key, value := range params {
		switch key {
		case "server_seed", "serverSeed", "server", "client_seed", "clientSeed", "client":
			if s, ok := value.(string); ok {
				sanitized[key+"_hash"] = hashSeed(s)
			} else {
				sanitized[key+"_hash"] = "non_string_value"
			}
		case "secret", "password", "token", "api_key":
			sanitized[key] = "[REDACTED]"
		default:
			sanitized[key] = value
		}
	}
	return sanitized
}
