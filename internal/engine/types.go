package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Seeds identifies a random stream. The server seed is used as ASCII; do NOT
// hex-decode it.
type Seeds struct {
	Server string `json:"server"`
	Client string `json:"client"`
}

// ServerHash returns the hex SHA-256 of the server seed, safe to persist or
// show before the seed is revealed.
func (s Seeds) ServerHash() string {
	if s.Server == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.Server))
	return hex.EncodeToString(sum[:])
}

// NewServerSeed draws a fresh 256-bit server seed as 64 hex characters.
func NewServerSeed() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("draw server seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
