package domain

import (
	"fmt"
	"strings"
)

// Player is one of the two sides of a Connect Four game.
type Player uint8

const (
	Red Player = iota
	Yellow
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == Red {
		return Yellow
	}
	return Red
}

func (p Player) String() string {
	switch p {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	default:
		return fmt.Sprintf("Player(%d)", uint8(p))
	}
}

// ParsePlayer accepts "r", "red", "y" or "yellow" in any case.
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "red":
		return Red, nil
	case "y", "yellow":
		return Yellow, nil
	}
	return Red, fmt.Errorf("%w: unknown player %q", ErrOutOfRange, s)
}

// Result is the final outcome of a finished game.
type Result uint8

const (
	RedWin Result = iota
	YellowWin
	Draw
)

// ResultFor returns the result representing p's win.
func ResultFor(p Player) Result {
	if p == Red {
		return RedWin
	}
	return YellowWin
}

// Winner returns the winning player, or false for a draw.
func (r Result) Winner() (Player, bool) {
	switch r {
	case RedWin:
		return Red, true
	case YellowWin:
		return Yellow, true
	default:
		return Red, false
	}
}

func (r Result) String() string {
	switch r {
	case RedWin:
		return "red wins"
	case YellowWin:
		return "yellow wins"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// Status is either Turn or Ended. No other implementations exist.
type Status interface {
	isStatus()
}

// Turn means the game is live and Player moves next.
type Turn struct {
	Player Player
}

// Ended means the game is over with Result.
type Ended struct {
	Result Result
}

func (Turn) isStatus()  {}
func (Ended) isStatus() {}
