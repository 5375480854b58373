package board

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

// Size is the side length of a stage grid.
const Size = 3

// Cells is the number of cells in a stage.
const Cells = Size * Size

// Cell is a grid position.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewCell validates a position.
func NewCell(row, col int) (Cell, error) {
	if row < 0 || row >= Size || col < 0 || col >= Size {
		return Cell{}, fmt.Errorf("%w: (%d, %d)", ErrOutOfRange, row, col)
	}
	return Cell{Row: row, Col: col}, nil
}

// CellAt converts a row-major index in [0, Cells) to a Cell.
func CellAt(index int) (Cell, error) {
	if index < 0 || index >= Cells {
		return Cell{}, fmt.Errorf("%w: index %d", ErrOutOfRange, index)
	}
	return Cell{Row: index / Size, Col: index % Size}, nil
}

// Index returns the row-major index of c.
func (c Cell) Index() int { return c.Row*Size + c.Col }

// SquaredDistance is dx²+dy² between two row-major indices.
func SquaredDistance(a, b int) int {
	dx := a/Size - b/Size
	dy := a%Size - b%Size
	return dx*dx + dy*dy
}

// Placed is an occupied cell.
type Placed struct {
	Cell  Cell  `json:"cell"`
	Token Token `json:"token"`
}

// Stage is one 3x3 snapshot of the race. Writes are last-write-wins.
type Stage struct {
	cells [Cells]Token
}

// AddToken validates tok and the position, then stores tok at (row, col).
func (s *Stage) AddToken(tok Token, row, col int) error {
	if err := tok.Validate(); err != nil {
		return err
	}
	c, err := NewCell(row, col)
	if err != nil {
		return err
	}
	s.cells[c.Index()] = tok
	return nil
}

// Put is AddToken addressed by row-major index.
func (s *Stage) Put(tok Token, index int) error {
	c, err := CellAt(index)
	if err != nil {
		return err
	}
	return s.AddToken(tok, c.Row, c.Col)
}

// At returns the token at index and whether the cell is occupied.
func (s *Stage) At(index int) (Token, bool) {
	if index < 0 || index >= Cells {
		return 0, false
	}
	t := s.cells[index]
	return t, !t.Empty()
}

// Find locates the first cell holding a token of color.
func (s *Stage) Find(color Color) (int, bool) {
	for i, t := range s.cells {
		if !t.Empty() && t.Color() == color {
			return i, true
		}
	}
	return -1, false
}

// Occupied returns the set of occupied indices.
func (s *Stage) Occupied() [Cells]bool {
	var out [Cells]bool
	for i, t := range s.cells {
		out[i] = !t.Empty()
	}
	return out
}

// Tokens yields occupied cells in row-major order.
func (s *Stage) Tokens() iter.Seq[Placed] {
	return func(yield func(Placed) bool) {
		for i, t := range s.cells {
			if t.Empty() {
				continue
			}
			if !yield(Placed{Cell: Cell{Row: i / Size, Col: i % Size}, Token: t}) {
				return
			}
		}
	}
}

// Len counts occupied cells.
func (s *Stage) Len() int {
	n := 0
	for range s.Tokens() {
		n++
	}
	return n
}

// Symbols renders every cell in row-major order.
func (s *Stage) Symbols() [Cells]string {
	var out [Cells]string
	for i, t := range s.cells {
		out[i] = Symbol(t)
	}
	return out
}

// Dump renders the grid as three |-separated rows.
func (s *Stage) Dump() string {
	sym := s.Symbols()
	var b strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(sym[r*Size:(r+1)*Size], "|"))
	}
	return b.String()
}

// MarshalJSON encodes the stage as nine symbols in row-major order.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.cells)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *Stage) UnmarshalJSON(b []byte) error {
	var cells [Cells]Token
	if err := json.Unmarshal(b, &cells); err != nil {
		return fmt.Errorf("decode stage: %w", err)
	}
	s.cells = cells
	return nil
}
