package board

import "fmt"

var (
	colorCodes = map[Color]byte{Red: 'R', Green: 'G', Blue: 'B', Yellow: 'Y'}
	kindCodes  = map[Kind]byte{None: ' ', PowerUp: 'S', PowerDown: 'U', Disruptor: 'F', StartBasket: 'B'}
)

// EmptySymbol renders a cell with no token.
const EmptySymbol = "  "

// Symbol renders t as a two character diagnostic code: color initial then
// kind code. Malformed colors render as X, malformed kinds as ?.
func Symbol(t Token) string {
	if t.Empty() {
		return EmptySymbol
	}
	c, ok := colorCodes[t.Color()]
	if !ok {
		c = 'X'
	}
	k, ok := kindCodes[t.Kind()]
	if !ok {
		k = '?'
	}
	return string([]byte{c, k})
}

// String implements fmt.Stringer.
func (t Token) String() string { return Symbol(t) }

// ParseSymbol is the inverse of Symbol for well-formed tokens.
func ParseSymbol(s string) (Token, error) {
	if s == EmptySymbol {
		return 0, nil
	}
	if len(s) != 2 {
		return 0, fmt.Errorf("%w: symbol %q", ErrInvalidToken, s)
	}
	var t Token
	for c, code := range colorCodes {
		if code == s[0] {
			t = c
		}
	}
	kindFound := false
	for k, code := range kindCodes {
		if code == s[1] {
			t |= k
			kindFound = true
		}
	}
	if !kindFound {
		return 0, fmt.Errorf("%w: symbol %q", ErrInvalidToken, s)
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	return t, nil
}

// MarshalText encodes t as its symbol.
func (t Token) MarshalText() ([]byte, error) {
	return []byte(Symbol(t)), nil
}

// UnmarshalText decodes a symbol produced by MarshalText.
func (t *Token) UnmarshalText(b []byte) error {
	v, err := ParseSymbol(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
