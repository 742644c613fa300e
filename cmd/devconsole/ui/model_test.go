package ui

import (
	"errors"
	"strings"
	"testing"

	"devconsole/internal/capture"
	"devconsole/internal/console"
	"devconsole/internal/evaluate"
	"devconsole/internal/inspect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Owner   string
	balance int
}

func (a *account) Balance() int { return a.balance }

func (a *account) Close() error { return errors.New("account locked") }

func newTestModel(t *testing.T) (Model, *console.Console) {
	t.Helper()
	c := console.New(console.Options{})
	c.Mount()
	b := evaluate.NewBridge(c, evaluate.EvaluatorFunc(func(src string) (any, error) {
		if src == "fail" {
			return nil, errors.New("nope")
		}
		return len(src), nil
	}), 0)
	st := NewStyles(DarkTheme())
	m := New(Options{Console: c, Bridge: b, Styles: &st})
	t.Cleanup(m.Close)
	return send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}), c
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// run sends msg and executes any returned command synchronously, feeding
// its message back in. Blinks and entry waits are skipped.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if done, ok := cmd().(evalDoneMsg); ok {
		m = send(t, m, done)
	}
	return m
}

func typeAndEnter(t *testing.T, m Model, src string) Model {
	t.Helper()
	m.prompt.SetValue(src)
	return run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func texts(entries []capture.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestSubmitEvaluates(t *testing.T) {
	m, c := newTestModel(t)

	m = typeAndEnter(t, m, "abc")
	assert.Equal(t, []string{"› abc", "3"}, texts(c.Entries()))
	assert.Empty(t, m.prompt.Value())
	assert.Zero(t, m.running)

	m = typeAndEnter(t, m, "fail")
	entries := c.Entries()
	assert.Equal(t, "Error: nope", entries[len(entries)-1].Text)
	assert.Contains(t, m.viewport.View(), "Error: nope")
}

func TestBlankSubmitDoesNothing(t *testing.T) {
	m, c := newTestModel(t)
	typeAndEnter(t, m, "   ")
	assert.Empty(t, c.Entries())
}

func TestHistoryNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeAndEnter(t, m, "first")
	m = typeAndEnter(t, m, "second")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", m.prompt.Value())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", m.prompt.Value())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "second", m.prompt.Value())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "", m.prompt.Value())
}

func TestAltEnterInsertsNewline(t *testing.T) {
	m, c := newTestModel(t)
	m.prompt.SetValue("a")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	assert.Equal(t, "a\n", m.prompt.Value())
	assert.Empty(t, c.Entries())
}

func TestKindFilters(t *testing.T) {
	m, c := newTestModel(t)
	c.Log("plain")
	c.Warn("careful")
	m = send(t, m, entriesChangedMsg{})
	assert.Equal(t, 2, m.shown)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyF2})
	assert.False(t, m.filter.Kinds[capture.KindWarn])
	assert.Equal(t, 1, m.shown)
	assert.Equal(t, 2, m.total)
	assert.NotContains(t, m.viewport.View(), "careful")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Equal(t, 2, m.shown)
}

func TestSearch(t *testing.T) {
	m, c := newTestModel(t)
	c.Log("Hello World")
	c.Log("bye")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.True(t, m.searching)
	for _, r := range "HELLO" {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "HELLO", m.filter.Search)
	assert.Equal(t, 1, m.shown)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Equal(t, 1, m.shown, "search text stays applied")
}

func TestClear(t *testing.T) {
	m, c := newTestModel(t)
	c.Log("x")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, c.Entries())
	assert.Zero(t, m.total)

	c.Log("y")
	m = typeAndEnter(t, m, ":clear")
	assert.Empty(t, c.Entries())
}

func TestTabCollapsesPrompt(t *testing.T) {
	m, c := newTestModel(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.collapsed)
	assert.Contains(t, m.View(), "prompt hidden")

	m.prompt.SetValue("abc")
	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, c.Entries())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.collapsed)
}

func TestExpandAndInvoke(t *testing.T) {
	m, c := newTestModel(t)
	c.Log("acct", &account{Owner: "ann", balance: 7})
	m = send(t, m, entriesChangedMsg{})

	root := c.Entries()[0].Nodes[1].(*inspect.Container)
	prefix := shortID(root.ID)

	m = typeAndEnter(t, m, ":expand "+prefix)
	assert.True(t, m.expanded[root.ID])
	assert.Contains(t, m.viewport.View(), `"Owner"`)

	m = typeAndEnter(t, m, ":invoke "+prefix+" Balance")
	assert.Equal(t, "7", m.results[invokeKey{root.ID, "Balance"}])
	assert.Contains(t, m.viewport.View(), "→ 7")
	assert.False(t, m.statusErr)

	m = typeAndEnter(t, m, ":invoke "+prefix+" Close")
	assert.Equal(t, "Error: Close: account locked", m.results[invokeKey{root.ID, "Close"}])
	assert.True(t, m.statusErr)

	assert.Len(t, c.Entries(), 1, "invoke never adds entries")

	m = typeAndEnter(t, m, ":expand "+prefix)
	assert.False(t, m.expanded[root.ID])
}

func TestCommandErrors(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeAndEnter(t, m, ":invoke obj_missing Foo")
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "Error:")

	m = typeAndEnter(t, m, ":expand")
	assert.Equal(t, "usage: :expand <id>", m.status)

	m = typeAndEnter(t, m, ":bogus")
	assert.True(t, strings.HasPrefix(m.status, "unknown command :bogus"))
}

func TestHelpOverlay(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeAndEnter(t, m, ":help")
	require.NotEmpty(t, m.help)
	assert.Contains(t, m.help, "invoke")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.help)
}

func TestViewBeforeResize(t *testing.T) {
	c := console.New(console.Options{})
	m := New(Options{Console: c})
	defer m.Close()
	assert.Equal(t, "Initializing...", m.View())
}
