package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// ByteGenerator streams HMAC-SHA256 bytes keyed by the server seed over
// "clientSeed:nonce:round" messages. Every puzzle draw ultimately comes from
// one of these streams, which is what makes a race reproducible.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a byte generator positioned at cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the generator.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextUint32 consumes exactly 4 bytes as a big-endian integer.
func (bg *ByteGenerator) NextUint32() uint32 {
	var b [4]byte
	for i := range b {
		b[i] = bg.Next()
	}
	return binary.BigEndian.Uint32(b[:])
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

// Rand adapts a ByteGenerator to the integer draws the race simulator needs.
// A Rand is not safe for concurrent use.
type Rand struct {
	bg *ByteGenerator
}

// NewRand returns a Rand reading the stream for seeds and nonce from cursor 0.
func NewRand(seeds Seeds, nonce uint64) *Rand {
	return &Rand{bg: NewByteGenerator(seeds.Server, seeds.Client, nonce, 0)}
}

// IntN returns a uniform value in [0, n). Words at or above the largest
// multiple of n below 2^32 are rejected and redrawn. It panics if n <= 0 or
// n > 2^32, like math/rand/v2.
func (r *Rand) IntN(n int) int {
	if n <= 0 || uint64(n) > 1<<32 {
		panic("engine: invalid argument to IntN")
	}
	return int(uniform(r.bg.NextUint32, uint64(n)))
}

// uniform maps 32-bit words from next onto [0, n) by rejection sampling.
func uniform(next func() uint32, n uint64) uint64 {
	limit := (1 << 32) / n * n
	for {
		if v := uint64(next()); v < limit {
			return v % n
		}
	}
}
