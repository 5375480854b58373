// Package board holds the grid model of an egg hunt: tokens, cells and the
// 3x3 stages the race is drawn on.
package board

import (
	"fmt"
	"math/bits"
)

// Token is a bit set combining one Color with at most one Kind. The zero
// Token is an empty cell.
type Token uint8

// Color is the color half of a Token.
type Color = Token

// Kind is the special half of a Token.
type Kind = Token

const (
	Red    Color = 1 << iota
	Green
	Blue
	Yellow
	PowerUp
	PowerDown
	Disruptor
	StartBasket

	None Kind = 0
)

const (
	colorMask Token = Red | Green | Blue | Yellow
	kindMask  Token = PowerUp | PowerDown | Disruptor | StartBasket
)

// Colors lists the four colors in ranking order.
var Colors = [4]Color{Red, Green, Blue, Yellow}

// NewToken combines a color and a kind, rejecting malformed combinations.
func NewToken(color Color, kind Kind) (Token, error) {
	t := color | kind
	if color&^colorMask != 0 || kind&^kindMask != 0 {
		return 0, fmt.Errorf("%w: color %#x kind %#x", ErrInvalidToken, uint8(color), uint8(kind))
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	return t, nil
}

// Validate checks that exactly one color bit and at most one kind bit are set.
func (t Token) Validate() error {
	if n := bits.OnesCount8(uint8(t & colorMask)); n != 1 {
		return fmt.Errorf("%w: %d colors in %#x", ErrInvalidToken, n, uint8(t))
	}
	if n := bits.OnesCount8(uint8(t & kindMask)); n > 1 {
		return fmt.Errorf("%w: %d kinds in %#x", ErrInvalidToken, n, uint8(t))
	}
	return nil
}

// Empty reports whether t is the zero token.
func (t Token) Empty() bool { return t == 0 }

// Color returns the color bits of t.
func (t Token) Color() Color { return t & colorMask }

// Kind returns the kind bits of t.
func (t Token) Kind() Kind { return t & kindMask }

// With ORs kind into t. The result is not validated.
func (t Token) With(kind Kind) Token { return t | kind }

// ColorIndex returns the position of t's color in Colors, or -1.
func (t Token) ColorIndex() int {
	for i, c := range Colors {
		if t.Color() == c {
			return i
		}
	}
	return -1
}

// KindName names a single kind for logs and JSON.
func KindName(k Kind) string {
	switch k {
	case None:
		return "none"
	case PowerUp:
		return "power_up"
	case PowerDown:
		return "power_down"
	case Disruptor:
		return "disruptor"
	case StartBasket:
		return "start_basket"
	default:
		return "invalid"
	}
}

// ColorName names a single color.
func ColorName(c Color) string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	default:
		return "invalid"
	}
}

// ParseColor is the inverse of ColorName.
func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if ColorName(c) == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown color %q", ErrInvalidToken, s)
}
