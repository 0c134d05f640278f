package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/jaminalder/codex-connect-four/internal/app"
	"github.com/jaminalder/codex-connect-four/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"cellClass": func(s string) string {
			switch s {
			case "R":
				return "red"
			case "Y":
				return "yellow"
			default:
				return "empty"
			}
		},
		"eq": func(a, b any) bool { return a == b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Connect Four</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row{display:flex}.cell{width:2.5em;height:2.5em;border:1px solid #333;border-radius:50%;margin:2px}
.red{background:#d22}.yellow{background:#ec2}.last{outline:3px solid #333}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Connect Four</h1>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>
{{if not .Owner}}<p>You are watching this game.</p>{{end}}`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

// renderTemplate executes t, or the associated template called name, and
// returns the output. Execution errors leave a truncated page.
func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	exec := func() error { return t.Execute(&buf, data) }
	if name != "" {
		exec = func() error { return t.ExecuteTemplate(&buf, name, data) }
	}
	_ = exec()
	return buf.Bytes()
}

const indexTemplate = `<h1>Connect Four</h1>
<form action="/game" method="post">
  <label>First to move
    <select name="start"><option value="red">Red</option><option value="yellow">Yellow</option></select>
  </label>
  <label>Opponent
    <select name="opponent">
      <option value="yellow">Computer plays yellow</option>
      <option value="red">Computer plays red</option>
      <option value="local">Two players, this screen</option>
    </select>
  </label>
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  <p class="status">{{.Banner}}</p>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="row">
    {{range .Columns}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="c" value="{{.Index}}">
        <button type="submit"{{if not .Open}} disabled{{end}}>{{.Index}}</button>
      </form>
    {{end}}
  </div>
  {{range $r, $row := .Rows}}
  <div class="row">
    {{range $c, $cell := $row}}
      <div class="cell {{cellClass $cell}}{{if and (eq $r $.LastRow) (eq $c $.LastCol)}} last{{end}}">{{$cell}}</div>
    {{end}}
  </div>
  {{end}}
</div>
`

type columnView struct {
	Index int
	Open  bool
}

type boardView struct {
	ID      string
	Rows    [][]string
	Columns []columnView
	Banner  string
	Error   string
	LastRow int
	LastCol int
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	v := boardView{
		ID:      gs.ID,
		Rows:    gridStrings(gs.Game.Board()),
		Banner:  banner(gs),
		Error:   errMsg,
		LastRow: gs.LastRow,
		LastCol: gs.LastCol,
	}
	open := map[int]bool{}
	if !gs.Game.Over() {
		for _, c := range gs.Game.PossibleMoves() {
			open[c] = true
		}
	}
	for c := 0; c < domain.Width; c++ {
		v.Columns = append(v.Columns, columnView{Index: c, Open: open[c]})
	}
	return v
}

func gridStrings(b domain.Board) [][]string {
	rows := make([][]string, domain.Height)
	for r := range b {
		rows[r] = make([]string, domain.Width)
		for c, cell := range b[r] {
			if !cell.IsEmpty() {
				rows[r][c] = cell.String()
			}
		}
	}
	return rows
}

func banner(gs app.GameState) string {
	switch st := gs.Game.Status().(type) {
	case domain.Turn:
		if gs.IsComputer(st.Player) {
			return "Computer (" + st.Player.String() + ") is thinking"
		}
		return "Turn: " + st.Player.String()
	case domain.Ended:
		return "Game over: " + st.Result.String()
	}
	return ""
}

const playerCookie = "c4_player"

// ensurePlayerCookie returns the browser's player id, issuing a fresh one
// when the request carries none. The id decides game ownership.
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
