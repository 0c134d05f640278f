package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaminalder/codex-connect-four/internal/app"
	"github.com/jaminalder/codex-connect-four/internal/domain"
)

// fixedPicker always answers with col.
type fixedPicker struct{ col int }

func (f fixedPicker) Pick(*domain.Game) (int, error) { return f.col, nil }

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService(app.WithOpponent(fixedPicker{col: 6}))
	h := NewServer(s, WithHeartbeat(time.Second))
	return s, h
}

func postForm(h http.Handler, path string, form url.Values, pid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if pid != "" {
		req.AddCookie(&http.Cookie{Name: playerCookie, Value: pid})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", url.Values{"start": {"yellow"}, "opponent": {"local"}}, "p1")
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if !ok {
		t.Fatalf("created game not found")
	}
	if gs.Owner != "p1" || gs.Computer != nil {
		t.Fatalf("unexpected owner/computer: %q %v", gs.Owner, gs.Computer)
	}
	if turn, _ := gs.Game.Turn(); turn != domain.Yellow {
		t.Fatalf("expected yellow to start, got %v", turn)
	}
}

func TestCreateRejectsUnknownColour(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/game", url.Values{"start": {"blue"}}, "p1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGamePageSetsCookieAndClaims(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("", domain.Red, nil)

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == playerCookie {
			playerID = c.Value
			break
		}
	}
	if playerID == "" {
		t.Fatalf("expected player cookie to be set")
	}
	latest, ok := svc.Get(gs.ID)
	if !ok || latest.Owner != playerID {
		t.Fatalf("expected claim by %q, owner=%q", playerID, latest.Owner)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if strings.Count(body, "class=\"cell") != domain.Height*domain.Width {
		t.Fatalf("expected %d cells in page", domain.Height*domain.Width)
	}
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("p1", domain.Red, nil)

	rr := postForm(h, "/game/"+gs.ID+"/join", url.Values{}, "p2")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", body)
	}
	if !strings.Contains(body, "You are a spectator") {
		t.Fatalf("expected spectator notice, got %q", body)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("p1", domain.Red, nil)

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"c": {"3"}}, "p1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves() != 1 || latest.Game.Square(domain.Height-1, 3) != domain.Chip(domain.Red) {
		t.Fatalf("expected red chip in column 3, moves=%d", latest.Game.Moves())
	}
	if !strings.Contains(rr.Body.String(), "Turn: yellow") {
		t.Fatalf("expected yellow turn banner, got %q", rr.Body.String())
	}
}

func TestPlayEndpointVsComputer(t *testing.T) {
	svc, h := newTestServer(t)
	yellow := domain.Yellow
	gs, _ := svc.CreateGame("p1", domain.Red, &yellow)

	postForm(h, "/game/"+gs.ID+"/play", url.Values{"c": {"0"}, "p": {"red"}}, "p1")
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves() != 2 {
		t.Fatalf("expected computer reply, moves=%d", latest.Game.Moves())
	}
	if latest.Game.Square(domain.Height-1, 6) != domain.Chip(domain.Yellow) {
		t.Fatalf("expected computer chip in column 6")
	}
}

func TestPlayEndpointErrors(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("p1", domain.Red, nil)
	path := "/game/" + gs.ID + "/play"

	cases := []struct {
		name string
		form url.Values
		pid  string
		want string
	}{
		{"spectator", url.Values{"c": {"0"}}, "p2", "You are a spectator"},
		{"out of turn", url.Values{"c": {"0"}, "p": {"yellow"}}, "p1", "Not your turn"},
		{"out of range", url.Values{"c": {"7"}}, "p1", "Out of range"},
		{"not a number", url.Values{"c": {"x"}}, "p1", "Invalid column"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postForm(h, path, tc.form, tc.pid)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("expected %q in body, got %q", tc.want, rr.Body.String())
			}
		})
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves() != 0 {
		t.Fatalf("rejected moves changed the board, moves=%d", latest.Game.Moves())
	}
}

func TestStateEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("p1", domain.Red, nil)
	svc.Play(gs.ID, "p1", domain.Red, 2)

	req := httptest.NewRequest("GET", "/game/"+gs.ID+"/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got stateView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Turn != "yellow" || got.Moves != 1 || got.Result != "" {
		t.Fatalf("unexpected state: %+v", got)
	}
	if got.Board[domain.Height-1][2] != "R" || got.Board[0][0] != "" {
		t.Fatalf("unexpected board: %v", got.Board)
	}
	if len(got.PossibleMoves) != domain.Width {
		t.Fatalf("expected all columns open, got %v", got.PossibleMoves)
	}
	if got.LastMove == nil || got.LastMove.Col != 2 || got.LastMove.Row != domain.Height-1 {
		t.Fatalf("unexpected last move: %+v", got.LastMove)
	}

	req = httptest.NewRequest("GET", "/game/missing/state", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestStateAfterWinHasNoMoves(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame("p1", domain.Red, nil)
	for i, col := range []int{3, 0, 3, 0, 3, 0, 3} {
		p := domain.Red
		if i%2 == 1 {
			p = domain.Yellow
		}
		if _, err := svc.Play(gs.ID, "p1", p, col); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
	}
	req := httptest.NewRequest("GET", "/game/"+gs.ID+"/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var got stateView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Result != "red wins" || got.Winner != "red" || got.Turn != "" {
		t.Fatalf("unexpected final state: %+v", got)
	}
	if len(got.PossibleMoves) != 0 {
		t.Fatalf("expected no moves after the end, got %v", got.PossibleMoves)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	rrCreate := postForm(h, "/game", url.Values{}, "p1")
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestEventsStreamBoardFragments(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, _ := svc.CreateGame("p1", domain.Red, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/game/"+gs.ID+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// headers are flushed only after the subscription is registered
	if _, err := svc.Play(gs.ID, "p1", domain.Red, 4); err != nil {
		t.Fatalf("play: %v", err)
	}

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if data != "" {
			break
		}
	}
	if event != "board" {
		t.Fatalf("expected board event, got %q (scan err %v)", event, sc.Err())
	}
	if !strings.Contains(data, `id="board"`) || !strings.Contains(data, "cell red last") {
		t.Fatalf("unexpected fragment: %q", data)
	}
	if !strings.Contains(data, "Turn: yellow") {
		t.Fatalf("expected yellow to move next in %q", data)
	}
}

func TestEventsUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/missing/events", nil)
	req.Header.Set("Accept", "text/event-stream")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestWebsocketPushesState(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, _ := svc.CreateGame("p1", domain.Red, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + gs.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first stateView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if first.ID != gs.ID || first.Moves != 0 || first.Turn != "red" {
		t.Fatalf("unexpected initial state: %+v", first)
	}

	if _, err := svc.Play(gs.ID, "p1", domain.Red, 4); err != nil {
		t.Fatalf("play: %v", err)
	}
	var next stateView
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Moves != 1 || next.Board[domain.Height-1][4] != "R" {
		t.Fatalf("unexpected update: %+v", next)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
}
