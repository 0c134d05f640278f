// Package console plays Connect Four on a text terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jaminalder/codex-connect-four/internal/domain"
	"github.com/jaminalder/codex-connect-four/internal/opponent"
)

// Render draws the board row by row, top row first, with a column index footer.
func Render(w io.Writer, b domain.Board) error {
	var sb strings.Builder
	for _, row := range b {
		for c, cell := range row {
			if c == 0 {
				sb.WriteString("|_ ")
			} else {
				sb.WriteString(" _|_ ")
			}
			sb.WriteString(cell.String())
		}
		sb.WriteString(" _|\n")
	}
	for c := 0; c < domain.Width; c++ {
		if c == 0 {
			sb.WriteString("   ")
		} else {
			sb.WriteString("     ")
		}
		sb.WriteString(strconv.Itoa(c))
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// Banner describes the status in one line.
func Banner(s domain.Status) string {
	switch st := s.(type) {
	case domain.Turn:
		return title(st.Player) + "'s turn"
	case domain.Ended:
		if w, ok := st.Result.Winner(); ok {
			return title(w) + " wins!"
		}
		return "It's a draw."
	}
	return ""
}

func title(p domain.Player) string {
	s := p.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Client reads moves from in and writes the board to out. A nil opponent
// means both colours are played from the same input.
type Client struct {
	in  *bufio.Reader
	out io.Writer
	opp opponent.Picker
	log *zap.Logger
}

func NewClient(in io.Reader, out io.Writer, opp opponent.Picker, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{in: bufio.NewReader(in), out: out, opp: opp, log: log}
}

// readLine returns the next trimmed input line. io.EOF is returned only when
// no more input is left.
func (c *Client) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptPlayer asks which colour the human plays until the answer is valid.
func (c *Client) PromptPlayer() (domain.Player, error) {
	for {
		fmt.Fprintln(c.out, "Would you like to play as red or yellow? (r/y)")
		line, err := c.readLine()
		if err != nil {
			return domain.Red, err
		}
		p, err := domain.ParsePlayer(line)
		if err == nil {
			return p, nil
		}
		fmt.Fprintln(c.out, "Invalid input. Please try again.")
	}
}

// ReadMove asks for a column until the answer is one of g's possible moves.
func (c *Client) ReadMove(g *domain.Game) (int, error) {
	moves := g.PossibleMoves()
	for {
		fmt.Fprintf(c.out, "Enter a column to play, valid columns are %v\n", moves)
		line, err := c.readLine()
		if err != nil {
			return -1, err
		}
		col, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(c.out, "Invalid input. Please try again.")
			continue
		}
		if !contains(moves, col) {
			fmt.Fprintln(c.out, "Illegal move. Please try again.")
			continue
		}
		return col, nil
	}
}

func contains(cols []int, col int) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// Play runs a game to the end with human moving first and returns the result.
// The computer, if any, plays human's opponent.
func (c *Client) Play(ctx context.Context, human domain.Player) (domain.Result, error) {
	g := domain.New(human)
	for {
		p, live := g.Turn()
		if !live {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.Draw, err
		}
		if err := Render(c.out, g.Board()); err != nil {
			return domain.Draw, err
		}
		fmt.Fprintln(c.out, Banner(g.Status()))

		var col int
		var err error
		if c.opp != nil && p != human {
			col, err = c.opp.Pick(g)
			if err == nil {
				fmt.Fprintf(c.out, "Computer plays column %d\n", col)
			}
		} else {
			col, err = c.ReadMove(g)
		}
		if err != nil {
			return domain.Draw, err
		}
		if _, err := g.Move(p, col); err != nil {
			// ReadMove and Pick only return possible moves
			return domain.Draw, fmt.Errorf("apply move: %w", err)
		}
		c.log.Debug("move", zap.Stringer("player", p), zap.Int("col", col))
	}

	r, _ := g.Result()
	fmt.Fprintln(c.out, Banner(g.Status()))
	fmt.Fprintln(c.out, "Game over!")
	fmt.Fprintln(c.out, "Final board:")
	if err := Render(c.out, g.Board()); err != nil {
		return r, err
	}
	c.log.Debug("game finished", zap.Stringer("result", r), zap.Int("moves", g.Moves()))
	return r, nil
}

// Run asks for the human's colour and plays one game.
func (c *Client) Run(ctx context.Context) (domain.Result, error) {
	human, err := c.PromptPlayer()
	if err != nil {
		return domain.Draw, err
	}
	return c.Play(ctx, human)
}
