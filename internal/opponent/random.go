// Package opponent provides computer move sources for a Connect Four game.
package opponent

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/jaminalder/codex-connect-four/internal/domain"
)

// ErrNoMoves is returned when the game has no legal move left.
var ErrNoMoves = errors.New("no legal moves")

// Picker chooses a column for the player whose turn it is.
type Picker interface {
	Pick(g *domain.Game) (int, error)
}

// Random picks a legal column uniformly at random. It is safe for
// concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Pick returns a column from g.PossibleMoves. An ended game has no legal
// moves even when some columns are still open.
func (r *Random) Pick(g *domain.Game) (int, error) {
	if g.Over() {
		return -1, ErrNoMoves
	}
	moves := g.PossibleMoves()
	if len(moves) == 0 {
		return -1, ErrNoMoves
	}
	r.mu.Lock()
	i := r.rng.Intn(len(moves))
	r.mu.Unlock()
	return moves[i], nil
}
