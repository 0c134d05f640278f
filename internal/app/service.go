package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/codex-connect-four/internal/domain"
	"github.com/jaminalder/codex-connect-four/internal/opponent"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = domain.ErrNotYourTurn
	ErrNotAPlayer  = errors.New("not a player")
)

// GameState is the in-memory state tracked per game.
//
// Owner is the only client allowed to move. With Computer nil the owner plays
// both colours on one screen; otherwise the computer answers for that colour.
type GameState struct {
	ID       string
	Game     *domain.Game
	Owner    string
	Computer *domain.Player
	LastRow  int
	LastCol  int
	Created  time.Time
	Updated  time.Time
}

// snapshot copies gs, including the game, so callers never share the live board.
func (gs *GameState) snapshot() GameState {
	cp := *gs
	cp.Game = gs.Game.Copy()
	if gs.Computer != nil {
		c := *gs.Computer
		cp.Computer = &c
	}
	return cp
}

// IsComputer reports whether p is played by the computer.
func (gs *GameState) IsComputer(p domain.Player) bool {
	return gs.Computer != nil && *gs.Computer == p
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
	picker opponent.Picker
	log    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the function that builds broadcast payloads.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithOpponent sets the move source used for computer seats.
func WithOpponent(p opponent.Picker) Option {
	return func(s *Service) {
		if p != nil {
			s.picker = p
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		games:  make(map[string]*GameState),
		subs:   make(map[string]map[*subscriber]struct{}),
		render: func(GameState) []byte { return nil },
		picker: opponent.NewRandom(time.Now().UnixNano()),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame registers a new game owned by owner. If the computer plays the
// starting colour its first move is made immediately.
func (s *Service) CreateGame(owner string, starting domain.Player, computer *domain.Player) (*GameState, error) {
	now := time.Now()
	gs := &GameState{
		ID:      uuid.NewString(),
		Game:    domain.New(starting),
		Owner:   owner,
		LastRow: -1,
		LastCol: -1,
		Created: now,
		Updated: now,
	}
	if computer != nil {
		c := *computer
		gs.Computer = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// the game is only registered once the computer's opening move is in
	if err := s.computerMovesLocked(gs); err != nil {
		return nil, err
	}
	s.games[gs.ID] = gs
	s.log.Info("game created",
		zap.String("game_id", gs.ID),
		zap.Stringer("starting", starting),
		zap.Bool("vs_computer", computer != nil),
	)
	cp := gs.snapshot()
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := gs.snapshot()
	return &cp, true
}

// Join claims an unowned game for playerID and reports whether playerID owns
// it. Anybody else is a spectator.
func (s *Service) Join(id, playerID string) (bool, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return false, nil, ErrNotFound
	}
	if gs.Owner == "" && playerID != "" {
		gs.Owner = playerID
		gs.Updated = time.Now()
	}
	cp := gs.snapshot()
	return gs.Owner == playerID, &cp, nil
}

// Play validates ownership and seat, applies p's move in col, lets the
// computer answer, and broadcasts every applied move.
func (s *Service) Play(id, playerID string, p domain.Player, col int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Owner != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.IsComputer(p) {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := s.moveLocked(gs, p, col); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	err := s.computerMovesLocked(gs)
	cp := gs.snapshot()
	s.mu.Unlock()
	if err != nil {
		return &cp, err
	}
	return &cp, nil
}

// moveLocked applies one move and broadcasts the result. s.mu must be held.
func (s *Service) moveLocked(gs *GameState, p domain.Player, col int) error {
	row, err := gs.Game.Move(p, col)
	if err != nil {
		return err
	}
	gs.LastRow, gs.LastCol = row, col
	gs.Updated = time.Now()
	s.log.Info("move applied",
		zap.String("game_id", gs.ID),
		zap.Stringer("player", p),
		zap.Int("col", col),
		zap.Int("row", row),
	)
	if r, over := gs.Game.Result(); over {
		s.log.Info("game ended", zap.String("game_id", gs.ID), zap.Stringer("result", r))
	}
	s.broadcastLocked(gs)
	return nil
}

// computerMovesLocked plays for the computer while it holds the turn.
func (s *Service) computerMovesLocked(gs *GameState) error {
	for {
		p, live := gs.Game.Turn()
		if !live || !gs.IsComputer(p) {
			return nil
		}
		col, err := s.picker.Pick(gs.Game)
		if err != nil {
			return fmt.Errorf("computer move: %w", err)
		}
		if err := s.moveLocked(gs, p, col); err != nil {
			return fmt.Errorf("computer move: %w", err)
		}
	}
}

// broadcastLocked fans the rendered state out to subscribers, dropping any
// whose buffer is full.
func (s *Service) broadcastLocked(gs *GameState) {
	set := s.subs[gs.ID]
	if len(set) == 0 {
		return
	}
	payload := s.render(gs.snapshot())
	for sub := range set {
		select {
		case sub.ch <- payload:
		default:
			s.log.Debug("dropping slow subscriber", zap.String("game_id", gs.ID))
			sub.close()
			delete(set, sub)
		}
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 4)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}
