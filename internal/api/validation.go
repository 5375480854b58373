package api

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/answer"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/race"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
)

const (
	maxNonceRange = 10_000_000
	maxLimit      = 100_000
	maxTimeoutMs  = 300_000
	maxModules    = race.MaxStages
	maxSeedLength = 256
)

var validOps = []string{"eq", "gt", "ge", "lt", "le", "between", "outside"}

// fieldError names the request field a validation failure belongs to.
type fieldError struct {
	errType string
	field   string
	message string
}

func (e fieldError) Error() string { return e.message }

func invalid(field, format string, args ...any) error {
	return fieldError{errType: ErrTypeValidation, field: field, message: fmt.Sprintf(format, args...)}
}

func validateSeeds(seeds games.Seeds) error {
	for _, f := range []struct{ field, name, value string }{
		{"seeds.server", "server", seeds.Server},
		{"seeds.client", "client", seeds.Client},
	} {
		if f.value == "" {
			return fieldError{errType: ErrTypeInvalidSeed, field: f.field, message: f.name + " seed is required"}
		}
		if len(f.value) > maxSeedLength {
			return fieldError{errType: ErrTypeInvalidSeed, field: f.field,
				message: fmt.Sprintf("%s seed too long (max %d bytes)", f.name, maxSeedLength)}
		}
	}
	return nil
}

// ValidateScanRequest validates a scan request and returns any validation errors
func ValidateScanRequest(req *ScanRequest) error {
	if req.Game == "" {
		return invalid("game", "game is required")
	}
	game, exists := games.GetGame(req.Game)
	if !exists {
		return invalid("game", "game '%s' not found", req.Game)
	}
	if err := games.ValidateParams(game, req.Params); err != nil {
		return err
	}

	if err := validateSeeds(req.Seeds); err != nil {
		return err
	}

	if req.NonceEnd < req.NonceStart {
		return invalid("nonce_end", "nonce_end (%d) must be >= nonce_start (%d)", req.NonceEnd, req.NonceStart)
	}
	if req.NonceEnd-req.NonceStart > maxNonceRange {
		return invalid("nonce_end", "nonce range too large (max %d nonces)", maxNonceRange)
	}

	if req.TargetOp == "" {
		return invalid("target_op", "target_op is required")
	}
	if !slices.Contains(validOps, req.TargetOp) {
		return invalid("target_op", "target_op must be one of: %s", strings.Join(validOps, ", "))
	}
	if req.TargetOp == "between" || req.TargetOp == "outside" {
		if req.TargetVal > req.TargetVal2 {
			return invalid("target_val2", "target_val must be <= target_val2 for '%s' operation", req.TargetOp)
		}
	}

	if req.Limit < 0 {
		return invalid("limit", "limit must be >= 0")
	}
	if req.Limit > maxLimit {
		return invalid("limit", "limit too large (max %d)", maxLimit)
	}
	if req.TimeoutMs < 0 {
		return invalid("timeout_ms", "timeout_ms must be >= 0")
	}
	if req.TimeoutMs > maxTimeoutMs {
		return invalid("timeout_ms", "timeout_ms too large (max %d ms)", maxTimeoutMs)
	}
	if req.Tolerance < 0 {
		return invalid("tolerance", "tolerance must be >= 0")
	}

	return nil
}

// ValidateVerifyRequest validates a verify request
func ValidateVerifyRequest(req *VerifyRequest) error {
	if req.Game == "" {
		return invalid("game", "game is required")
	}
	game, exists := games.GetGame(req.Game)
	if !exists {
		return invalid("game", "game '%s' not found", req.Game)
	}
	if err := games.ValidateParams(game, req.Params); err != nil {
		return err
	}
	if err := validateSeeds(req.Seeds); err != nil {
		return err
	}
	return nil
}

// ValidateCreatePuzzleRequest validates a puzzle creation request
func ValidateCreatePuzzleRequest(req *CreatePuzzleRequest) error {
	if req.ModuleCount < 0 {
		return invalid("module_count", "module_count must be >= 0")
	}
	if req.ModuleCount > maxModules {
		return invalid("module_count", "module_count too large (max %d)", maxModules)
	}
	return nil
}

// ValidateAnswerRequest checks every submitted place is selectable.
func ValidateAnswerRequest(req *AnswerRequest) error {
	for i, v := range req.Ranking {
		if v < answer.MinValue || v > answer.MaxValue {
			return invalid(fmt.Sprintf("ranking[%d]", i), "places must be between %d and %d", answer.MinValue, answer.MaxValue)
		}
	}
	return nil
}

// convertToScanRequest converts API ScanRequest to internal scan.ScanRequest
func convertToScanRequest(apiReq *ScanRequest) scan.ScanRequest {
	return scan.ScanRequest{
		Game:       apiReq.Game,
		Seeds:      apiReq.Seeds,
		NonceStart: apiReq.NonceStart,
		NonceEnd:   apiReq.NonceEnd,
		Params:     apiReq.Params,
		TargetOp:   scan.TargetOp(apiReq.TargetOp),
		TargetVal:  apiReq.TargetVal,
		TargetVal2: apiReq.TargetVal2,
		Tolerance:  apiReq.Tolerance,
		Limit:      apiReq.Limit,
		TimeoutMs:  apiReq.TimeoutMs,
		Script:     apiReq.Script,
	}
}
