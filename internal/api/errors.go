package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scripting"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// evaluationError marks a failure inside a game's own evaluation.
type evaluationError struct {
	game string
	err  error
}

func (e evaluationError) Error() string { return fmt.Sprintf("evaluate %s: %v", e.game, e.err) }

func (e evaluationError) Unwrap() error { return e.err }

// classify maps a domain error onto an error type and HTTP status.
func classify(err error) (string, int) {
	var evalErr evaluationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrTypeNotFound, http.StatusNotFound
	case errors.Is(err, scan.ErrGameNotFound):
		return ErrTypeGameNotFound, http.StatusBadRequest
	case errors.Is(err, scan.ErrInvalidRange), errors.Is(err, scan.ErrInvalidTarget),
		errors.Is(err, scan.ErrScriptUnsupported), errors.Is(err, scripting.ErrNoMatchFunc),
		errors.Is(err, scripting.ErrCompile), errors.Is(err, games.ErrInvalidParams):
		return ErrTypeInvalidParams, http.StatusBadRequest
	case errors.Is(err, puzzle.ErrModuleCount), errors.Is(err, race.ErrStageCount),
		errors.Is(err, board.ErrInvalidToken), errors.Is(err, board.ErrOutOfRange):
		return ErrTypeValidation, http.StatusBadRequest
	case errors.Is(err, puzzle.ErrNotReady):
		return ErrTypeNotReady, http.StatusConflict
	case errors.Is(err, puzzle.ErrSolved):
		return ErrTypeSolved, http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout, http.StatusGatewayTimeout
	case errors.As(err, &evalErr):
		return ErrTypeGameEvaluation, http.StatusUnprocessableEntity
	default:
		return ErrTypeInternal, http.StatusInternalServerError
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	log *logrus.Entry
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{log: logger.WithField("component", "api")}
}

// HandleError classifies err and writes the matching response.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var fe fieldError
	if errors.As(err, &fe) {
		eh.handleField(w, r, fe.errType, fe.field, fe.message)
		return
	}
	var engineErr EngineError
	if errors.As(err, &engineErr) {
		eh.write(w, r, http.StatusBadRequest, engineErr)
		return
	}

	errType, status := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	engineErr = NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithCause(err).
		Build()
	eh.write(w, r, status, engineErr)
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	eh.handleField(w, r, ErrTypeValidation, field, message)
}

func (eh *ErrorHandler) handleField(w http.ResponseWriter, r *http.Request, errType, field, message string) {
	engineErr := NewError(errType, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		Build()
	eh.write(w, r, http.StatusBadRequest, engineErr)
}

// HandleStatus writes an error of the given type and status.
func (eh *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	engineErr := NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		Build()
	eh.write(w, r, status, engineErr)
}

func (eh *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	if engineErr.RequestID == "" {
		engineErr.RequestID = middleware.GetReqID(r.Context())
	}
	eh.logError(r, engineErr, status)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.log.WithError(err).Error("encode error response")
	}
}

// logError logs the error with appropriate level and context
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	fields := logrus.Fields{
		"type":       engineErr.Type,
		"category":   GetErrorCategory(engineErr.Type),
		"status":     status,
		"request_id": engineErr.RequestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	}
	for key, value := range engineErr.Context {
		// Never log raw seeds
		if key == "server_seed" || key == "client_seed" {
			continue
		}
		fields[key] = value
	}

	entry := eh.log.WithFields(fields)
	if status >= http.StatusInternalServerError {
		entry.Error(engineErr.Message)
		return
	}
	entry.Warn(engineErr.Message)
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithContext("panic", fmt.Sprintf("%v", rvr)).
					WithContext("path", r.URL.Path).
					Build()
				eh.write(w, r, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
