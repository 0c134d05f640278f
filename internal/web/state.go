package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/codex-connect-four/internal/app"
	"github.com/jaminalder/codex-connect-four/internal/domain"
)

type lastMove struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// stateView is the JSON form of a game, shared by /state and the websocket.
type stateView struct {
	ID            string     `json:"id"`
	Board         [][]string `json:"board"`
	Turn          string     `json:"turn,omitempty"`
	Result        string     `json:"result,omitempty"`
	Winner        string     `json:"winner,omitempty"`
	PossibleMoves []int      `json:"possibleMoves"`
	Moves         int        `json:"moves"`
	Computer      string     `json:"computer,omitempty"`
	LastMove      *lastMove  `json:"lastMove,omitempty"`
}

func newStateView(gs app.GameState) stateView {
	v := stateView{
		ID:            gs.ID,
		Board:         gridStrings(gs.Game.Board()),
		PossibleMoves: []int{},
		Moves:         gs.Game.Moves(),
	}
	switch st := gs.Game.Status().(type) {
	case domain.Turn:
		v.Turn = st.Player.String()
		v.PossibleMoves = gs.Game.PossibleMoves()
	case domain.Ended:
		v.Result = st.Result.String()
		if w, ok := st.Result.Winner(); ok {
			v.Winner = w.String()
		}
	}
	if gs.Computer != nil {
		v.Computer = gs.Computer.String()
	}
	if gs.LastCol >= 0 {
		v.LastMove = &lastMove{Row: gs.LastRow, Col: gs.LastCol}
	}
	return v
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newStateView(*gs)); err != nil {
		h.log.Warn("encode state", zap.Error(err))
	}
}
