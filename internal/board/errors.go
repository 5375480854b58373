package board

import "errors"

var (
	// ErrInvalidToken reports a token without exactly one color or with more
	// than one special kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrOutOfRange reports a cell outside the 3x3 grid.
	ErrOutOfRange = errors.New("cell out of range")
)
