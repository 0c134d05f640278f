package domain

// Board dimensions. Row 0 is the top row, column 0 the leftmost.
const (
	Height    = 6
	Width     = 7
	WinLength = 4
)

// Cell is a board square: empty, or holding one player's chip.
type Cell uint8

// Empty is the unoccupied cell. It is not a Player.
const Empty Cell = 0

// Chip returns the cell occupied by p.
func Chip(p Player) Cell {
	return Cell(p) + 1
}

// Player reports who occupies the cell, if anyone.
func (c Cell) Player() (Player, bool) {
	if c == Empty {
		return Red, false
	}
	return Player(c - 1), true
}

func (c Cell) IsEmpty() bool { return c == Empty }

func (c Cell) String() string {
	p, ok := c.Player()
	switch {
	case !ok:
		return " "
	case p == Red:
		return "R"
	default:
		return "Y"
	}
}

// Board is the grid indexed [row][col]. It is a value type: assigning a
// Board copies every cell.
type Board [Height][Width]Cell

// openRow returns the lowest empty row of col.
func (b *Board) openRow(col int) (int, bool) {
	for row := Height - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			return row, true
		}
	}
	return -1, false
}

func (b *Board) full() bool {
	for col := 0; col < Width; col++ {
		if b[0][col] == Empty {
			return false
		}
	}
	return true
}

// line is WinLength cells starting at (row, col) and stepping by (dr, dc).
type line struct {
	row, col int
	dr, dc   int
}

// lines holds every line that fits on the board.
var lines = buildLines()

func buildLines() []line {
	var ls []line
	// horizontal
	for row := 0; row < Height; row++ {
		for col := 0; col+WinLength <= Width; col++ {
			ls = append(ls, line{row, col, 0, 1})
		}
	}
	// vertical
	for row := 0; row+WinLength <= Height; row++ {
		for col := 0; col < Width; col++ {
			ls = append(ls, line{row, col, 1, 0})
		}
	}
	// down-right
	for row := 0; row+WinLength <= Height; row++ {
		for col := 0; col+WinLength <= Width; col++ {
			ls = append(ls, line{row, col, 1, 1})
		}
	}
	// down-left
	for row := 0; row+WinLength <= Height; row++ {
		for col := WinLength - 1; col < Width; col++ {
			ls = append(ls, line{row, col, 1, -1})
		}
	}
	return ls
}

// owner returns the player holding all cells of l.
func (b *Board) owner(l line) (Player, bool) {
	first := b[l.row][l.col]
	if first == Empty {
		return Red, false
	}
	for i := 1; i < WinLength; i++ {
		if b[l.row+i*l.dr][l.col+i*l.dc] != first {
			return Red, false
		}
	}
	return first.Player()
}

// winner returns the owner of the first complete line found.
func (b *Board) winner() (Player, bool) {
	for _, l := range lines {
		if p, ok := b.owner(l); ok {
			return p, true
		}
	}
	return Red, false
}
