package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenValidation(t *testing.T) {
	tests := []struct {
		name    string
		color   Color
		kind    Kind
		wantErr bool
	}{
		{name: "plain red", color: Red, kind: None},
		{name: "yellow start basket", color: Yellow, kind: StartBasket},
		{name: "blue disruptor", color: Blue, kind: Disruptor},
		{name: "no color", color: 0, kind: None, wantErr: true},
		{name: "two colors", color: Red | Green, kind: None, wantErr: true},
		{name: "two kinds", color: Green, kind: PowerUp | PowerDown, wantErr: true},
		{name: "kind passed as color", color: Red | PowerUp, kind: None, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewToken(tt.color, tt.kind)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.color, tok.Color())
			assert.Equal(t, tt.kind, tok.Kind())
		})
	}
}

func TestAddTokenRejectsBadInput(t *testing.T) {
	var s Stage

	require.ErrorIs(t, s.AddToken(Red|Green, 0, 0), ErrInvalidToken)
	require.ErrorIs(t, s.AddToken(0, 0, 0), ErrInvalidToken)
	require.ErrorIs(t, s.AddToken(Red|PowerUp|Disruptor, 0, 0), ErrInvalidToken)
	require.ErrorIs(t, s.AddToken(Red, 3, 0), ErrOutOfRange)
	require.ErrorIs(t, s.AddToken(Red, 0, -1), ErrOutOfRange)
	assert.Zero(t, s.Len())
}

func TestAddTokenLastWriteWins(t *testing.T) {
	var s Stage
	require.NoError(t, s.AddToken(Red, 1, 1))
	require.NoError(t, s.AddToken(Blue|PowerUp, 1, 1))

	tok, ok := s.At(4)
	require.True(t, ok)
	assert.Equal(t, Blue|PowerUp, tok)
	assert.Equal(t, 1, s.Len())
}

func TestTokensRowMajor(t *testing.T) {
	var s Stage
	require.NoError(t, s.Put(Yellow, 8))
	require.NoError(t, s.Put(Red, 0))
	require.NoError(t, s.Put(Green|StartBasket, 5))

	var got []Placed
	for p := range s.Tokens() {
		got = append(got, p)
	}
	assert.Equal(t, []Placed{
		{Cell: Cell{0, 0}, Token: Red},
		{Cell: Cell{1, 2}, Token: Green | StartBasket},
		{Cell: Cell{2, 2}, Token: Yellow},
	}, got)

	// The sequence stops when the consumer does.
	n := 0
	for range s.Tokens() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		tok  Token
		want string
	}{
		{0, "  "},
		{Red, "R "},
		{Green | PowerUp, "GS"},
		{Blue | PowerDown, "BU"},
		{Yellow | Disruptor, "YF"},
		{Red | StartBasket, "RB"},
		{PowerUp, "XS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Symbol(tt.tok))
	}
}

func TestParseSymbolRoundTrip(t *testing.T) {
	for _, c := range Colors {
		for _, k := range []Kind{None, PowerUp, PowerDown, Disruptor, StartBasket} {
			tok, err := NewToken(c, k)
			require.NoError(t, err)
			got, err := ParseSymbol(Symbol(tok))
			require.NoError(t, err)
			assert.Equal(t, tok, got)
		}
	}

	_, err := ParseSymbol("XS")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseSymbol("R")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStageJSON(t *testing.T) {
	var s Stage
	require.NoError(t, s.Put(Red|StartBasket, 0))
	require.NoError(t, s.Put(Blue|Disruptor, 4))

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["RB","  ","  ","  ","BF","  ","  ","  ","  "]`, string(b))

	var back Stage
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestDump(t *testing.T) {
	var s Stage
	require.NoError(t, s.Put(Red|StartBasket, 0))
	require.NoError(t, s.Put(Yellow, 8))
	assert.Equal(t, "RB|  |  \n  |  |  \n  |  |Y ", s.Dump())
}

func TestSquaredDistance(t *testing.T) {
	assert.Equal(t, 0, SquaredDistance(4, 4))
	assert.Equal(t, 1, SquaredDistance(0, 1))
	assert.Equal(t, 2, SquaredDistance(0, 4))
	assert.Equal(t, 4, SquaredDistance(0, 2))
	assert.Equal(t, 5, SquaredDistance(0, 5))
	assert.Equal(t, 8, SquaredDistance(0, 8))
}

func TestFind(t *testing.T) {
	var s Stage
	require.NoError(t, s.Put(Green, 3))
	idx, ok := s.Find(Green)
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	_, ok = s.Find(Red)
	assert.False(t, ok)
}

func TestCellAt(t *testing.T) {
	c, err := CellAt(7)
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 2, Col: 1}, c)
	assert.Equal(t, 7, c.Index())
	_, err = CellAt(9)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
