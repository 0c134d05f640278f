package domain

import (
	"errors"
	"fmt"
)

// Errors returned by domain operations.
//
// ErrOutOfRange means a caller passed a bad index. ErrIllegalState means the
// move is not allowed right now; ErrGameOver, ErrNotYourTurn and
// ErrColumnFull all match it with errors.Is.
var (
	ErrOutOfRange   = errors.New("out of range")
	ErrIllegalState = errors.New("illegal state")

	ErrGameOver    = illegal("game over")
	ErrNotYourTurn = illegal("not your turn")
	ErrColumnFull  = illegal("column full")
)

type stateError struct{ msg string }

func illegal(msg string) error { return &stateError{msg: msg} }

func (e *stateError) Error() string        { return e.msg }
func (e *stateError) Is(target error) bool { return target == ErrIllegalState }

// Game holds the board and status of a Connect Four match. The zero value is
// not usable; create games with New.
type Game struct {
	board  Board
	status Status
	moves  int
}

// New returns an empty game with starting to move.
func New(starting Player) *Game {
	return &Game{status: Turn{Player: starting}}
}

// Copy returns a deep copy of g.
func (g *Game) Copy() *Game {
	cp := *g
	return &cp
}

func (g *Game) Status() Status { return g.status }

// Turn returns the player to move, or false once the game has ended.
func (g *Game) Turn() (Player, bool) {
	if t, ok := g.status.(Turn); ok {
		return t.Player, true
	}
	return Red, false
}

// Result returns the outcome, or false while the game is live.
func (g *Game) Result() (Result, bool) {
	if e, ok := g.status.(Ended); ok {
		return e.Result, true
	}
	return Draw, false
}

// Over reports whether the game has ended.
func (g *Game) Over() bool {
	_, ok := g.status.(Ended)
	return ok
}

// Moves returns the number of chips on the board.
func (g *Game) Moves() int { return g.moves }

// Square returns the cell at row, col. It panics if either index is outside
// the board.
func (g *Game) Square(row, col int) Cell {
	if row < 0 || row >= Height || col < 0 || col >= Width {
		panic(fmt.Errorf("%w: square (%d, %d)", ErrOutOfRange, row, col))
	}
	return g.board[row][col]
}

// Board returns a snapshot of the grid.
func (g *Game) Board() Board { return g.board }

// PossibleMoves returns the columns, in ascending order, whose top cell is
// empty. It looks only at the board: after the game has ended it still
// reports open columns, so check Status before trusting the result.
func (g *Game) PossibleMoves() []int {
	cols := make([]int, 0, Width)
	for col := 0; col < Width; col++ {
		if g.board[0][col] == Empty {
			cols = append(cols, col)
		}
	}
	return cols
}

// Move drops p's chip into col and returns the row it landed in. On error
// the game is left untouched.
func (g *Game) Move(p Player, col int) (int, error) {
	if col < 0 || col >= Width {
		return -1, fmt.Errorf("%w: column %d", ErrOutOfRange, col)
	}
	t, ok := g.status.(Turn)
	if !ok {
		return -1, ErrGameOver
	}
	if t.Player != p {
		return -1, ErrNotYourTurn
	}
	row, ok := g.board.openRow(col)
	if !ok {
		return -1, ErrColumnFull
	}

	g.board[row][col] = Chip(p)
	g.moves++
	g.status = Turn{Player: p.Opponent()}
	g.checkEnd()
	return row, nil
}

func (g *Game) checkEnd() {
	if w, ok := g.board.winner(); ok {
		g.status = Ended{Result: ResultFor(w)}
		return
	}
	if g.board.full() {
		g.status = Ended{Result: Draw}
	}
}
