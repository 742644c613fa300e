package ui

import (
	"strings"
	"testing"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func (p point) Norm() int { return p.X*p.X + p.Y*p.Y }

func formattedEntry(t *testing.T, args ...any) capture.Entry {
	t.Helper()
	f := inspect.NewFormatter(inspect.NewRegistry(), inspect.Options{})
	nodes := make([]inspect.Node, len(args))
	for i, a := range args {
		nodes[i] = f.FormatArg(a)
	}
	return capture.NewFormatted(capture.KindLog, nodes, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
}

func TestRenderEntryCollapsed(t *testing.T) {
	st := NewStyles(LightTheme())
	e := formattedEntry(t, "at", &point{1, 2})
	root := e.Nodes[1].(*inspect.Container)

	out := renderEntry(st, e, map[string]bool{}, map[invokeKey]string{})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "12:30:00.000")
	assert.Contains(t, lines[0], "at ")
	assert.Contains(t, lines[1], "▸")
	assert.Contains(t, lines[1], shortID(root.ID))
}

func TestRenderEntryExpanded(t *testing.T) {
	st := NewStyles(LightTheme())
	e := formattedEntry(t, point{3, 4})
	root := e.Nodes[0].(*inspect.Container)

	out := renderEntry(st, e, map[string]bool{root.ID: true}, map[invokeKey]string{{root.ID, "Norm"}: "25"})
	assert.Contains(t, out, "▾")
	assert.Contains(t, out, `"X": 3`)
	assert.Contains(t, out, "→ 25")

	plain := RenderPlain(st, e)
	assert.Contains(t, plain, `"Y": 4`)
	assert.NotContains(t, plain, ":invoke")
}

func TestRenderEntryShowsPlainStrings(t *testing.T) {
	st := NewStyles(LightTheme())
	e := formattedEntry(t, []string{"a<b & c"})

	out := renderEntry(st, e, map[string]bool{}, map[invokeKey]string{})
	assert.Contains(t, out, `"a<b & c"`)
	assert.NotContains(t, out, "&lt;")
	assert.NotContains(t, out, "&amp;")
}

func TestMessageEntryHasNoBody(t *testing.T) {
	st := NewStyles(DarkTheme())
	e := capture.NewMessage(capture.KindInfo, "› 1+1", time.Now())
	out := renderEntry(st, e, nil, nil)
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "› 1+1")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "obj_12345678", shortID("obj_12345678-aaaa-bbbb"))
	assert.Equal(t, "obj_1", shortID("obj_1"))
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "")
	t.Setenv("DEVCONSOLE_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark)
}
