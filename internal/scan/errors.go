package scan

import "errors"

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrInvalidRange      = errors.New("invalid nonce range")
	ErrInvalidTarget     = errors.New("invalid target operator")
	ErrScriptUnsupported = errors.New("game does not support script predicates")
)
