package console

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"
	"devconsole/internal/logging"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func texts(entries []capture.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestInstallIsIdempotent(t *testing.T) {
	c := New(Options{})
	var first, second int
	require.True(t, c.Install(Sinks{Log: func(...any) { first++ }}))
	require.False(t, c.Install(Sinks{Log: func(...any) { second++ }}))

	c.Log("a")
	c.Log("b")
	c.Log("c")

	assert.Equal(t, 3, first)
	assert.Zero(t, second)
	assert.Equal(t, 3, c.PreBuffer().Len())
	assert.True(t, c.Installed())
}

func TestSinkReceivesOriginalArgs(t *testing.T) {
	c := New(Options{})
	type payload struct{ N int }
	p := &payload{N: 1}

	var got []any
	c.Install(Sinks{Warn: func(args ...any) { got = args }})
	c.Warn("value", p)

	require.Len(t, got, 2)
	assert.Same(t, p, got[1])
}

func TestPreBufferEvictsOldest(t *testing.T) {
	c := New(Options{})
	for i := 1; i <= 1001; i++ {
		c.Log(i)
	}

	records := c.PreBuffer().Snapshot()
	require.Len(t, records, 1000)
	assert.Equal(t, 2, records[0].Args[0])
	assert.Equal(t, 1001, records[999].Args[0])
}

func TestMountReplaysInOrder(t *testing.T) {
	c := New(Options{})
	c.Log("A")
	c.Warn("B")
	c.Error("C")
	pre := c.PreBuffer().Snapshot()

	require.True(t, c.Mount())
	require.False(t, c.Mount())

	entries := c.Entries()
	assert.Equal(t, []string{"A", "B", "C"}, texts(entries))
	assert.Equal(t, []capture.Kind{capture.KindLog, capture.KindWarn, capture.KindError},
		[]capture.Kind{entries[0].Kind, entries[1].Kind, entries[2].Kind})
	for i := range entries {
		assert.Equal(t, pre[i].Time, entries[i].Time)
	}

	c.Info("D")
	assert.Equal(t, []string{"A", "B", "C", "D"}, texts(c.Entries()))
	assert.Equal(t, 3, c.PreBuffer().Len())
}

func TestPreMountArgsAreCloned(t *testing.T) {
	c := New(Options{})
	p := &struct{ N int }{N: 1}
	c.Log("state", p)
	p.N = 2

	c.Mount()
	assert.Equal(t, []string{"state Object(1) {N: 1}"}, texts(c.Entries()))
}

func TestMountedCycleScenario(t *testing.T) {
	c := New(Options{})
	c.Mount()

	m := map[string]any{"a": 1}
	m["self"] = m
	c.Log(m)

	entries := c.Entries()
	require.Len(t, entries, 1)
	root, ok := entries[0].Nodes[0].(*inspect.Container)
	require.True(t, ok)

	want := []inspect.Child{
		{Key: "a", Node: &inspect.Primitive{Kind: inspect.KindNumber, Literal: "1"}},
		{Key: "self", Node: &inspect.Circular{}},
	}
	if diff := cmp.Diff(want, root.Children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second), base.Add(-time.Hour)}
	var mu sync.Mutex
	i := 0
	c := New(Options{Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ticks[i%len(ticks)]
		i++
		return t
	}})

	c.Log("1")
	c.Log("2")
	c.Mount()
	c.Log("3")
	c.Log("4")

	entries := c.Entries()
	require.Len(t, entries, 4)
	for j := 1; j < len(entries); j++ {
		assert.False(t, entries[j].Time.Before(entries[j-1].Time), "entry %d went backwards", j)
	}
}

func TestPostBufferCapacity(t *testing.T) {
	c := New(Options{PostBufferSize: 3})
	c.Mount()
	for i := 0; i < 5; i++ {
		c.Log(i)
	}
	assert.Equal(t, []string{"2", "3", "4"}, texts(c.Entries()))
}

func TestQueryAndClear(t *testing.T) {
	c := New(Options{})
	c.Mount()
	c.Log("Hello World")
	c.Warn("careful")
	c.Error("hello again")

	f := NewFilter()
	f.Search = "HELLO"
	assert.Equal(t, []string{"Hello World", "hello again"}, texts(c.Query(f)))

	f.Toggle(capture.KindError)
	assert.Equal(t, []string{"Hello World"}, texts(c.Query(f)))

	assert.Len(t, c.Query(Filter{}), 3)

	c.Clear()
	assert.Empty(t, c.Entries())
	assert.Equal(t, 3, c.PreBuffer().Len())
}

func TestQueryMatchesUnescapedText(t *testing.T) {
	c := New(Options{})
	c.Mount()
	c.Log([]string{"a<b"})
	c.Log("plain")

	got := c.Query(Filter{Search: "a<b"})
	require.Len(t, got, 1)
	assert.Equal(t, `Array(1) ["a&lt;b"]`, got[0].Text)
}

func TestSubscribe(t *testing.T) {
	c := New(Options{})
	var got []string
	cancel := c.Subscribe(func(e capture.Entry) { got = append(got, e.Text) })

	c.Log("before mount")
	c.Mount()
	c.Log("after mount")
	cancel()
	c.Log("after cancel")

	assert.Equal(t, []string{"after mount"}, got)
}

func TestAppendMessageSkipsSinks(t *testing.T) {
	c := New(Options{})
	called := false
	c.Install(Sinks{Info: func(...any) { called = true }})
	c.Mount()

	c.AppendMessage(capture.KindInfo, "› 1+1")
	c.Append(capture.KindResult, 2)

	assert.False(t, called)
	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Nodes)
	assert.Equal(t, "› 1+1", entries[0].Text)
	assert.Equal(t, capture.KindResult, entries[1].Kind)
	assert.Equal(t, "2", entries[1].Text)
}

type counter struct{ n int }

func (c *counter) Next() int { c.n++; return c.n }

func TestInvokeDoesNotTouchEntries(t *testing.T) {
	c := New(Options{})
	c.Mount()
	c.Log(&counter{})

	entry := c.Entries()[0]
	root := entry.Nodes[0].(*inspect.Container)

	n, err := c.Invoke(root.ID, "Next")
	require.NoError(t, err)
	assert.Equal(t, "1", n.Text())
	assert.Equal(t, entry, c.Entries()[0])

	_, err = c.Invoke(root.ID, "missing")
	assert.ErrorIs(t, err, inspect.ErrNotFunction)

	expanded, err := c.Expand(root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, expanded.(*inspect.Container).ID)
}

// debugLogs turns on file logging under a temporary workspace and returns
// its logs directory.
func debugLogs(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	t.Setenv("DEVCONSOLE_DEBUG", "1")
	require.NoError(t, logging.Initialize(ws))
	require.NoError(t, logging.InitAudit())
	t.Cleanup(func() {
		logging.CloseAudit()
		logging.CloseAll()
		os.Setenv("DEVCONSOLE_DEBUG", "0")
		_ = logging.Initialize(ws)
	})
	return filepath.Join(ws, ".devconsole", "logs")
}

func readLog(t *testing.T, dir, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+suffix+".log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestInvokeAndExpandAreLogged(t *testing.T) {
	dir := debugLogs(t)
	c := New(Options{})
	c.Mount()
	c.Log(&counter{})
	root := c.Entries()[0].Nodes[0].(*inspect.Container)

	_, err := c.Invoke(root.ID, "Next")
	require.NoError(t, err)
	_, err = c.Expand(root.ID)
	require.NoError(t, err)
	logging.CloseAudit()
	logging.CloseAll()

	var invokes []logging.AuditEvent
	sc := bufio.NewScanner(strings.NewReader(readLog(t, dir, "audit")))
	for sc.Scan() {
		var e logging.AuditEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		if e.EventType == logging.AuditInvoke {
			invokes = append(invokes, e)
		}
	}
	require.Len(t, invokes, 1)
	assert.Equal(t, "inspect", invokes[0].Category)
	assert.Equal(t, root.ID+".Next", invokes[0].Target)
	assert.True(t, invokes[0].Success)

	assert.Contains(t, readLog(t, dir, "inspect"), "expanded "+root.ID)
}

func TestWrapCore(t *testing.T) {
	c := New(Options{})
	c.Mount()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := c.WrapLogger(zap.New(core))

	logger.Warn("hello", zap.Int("n", 1))
	logger.Named("db").Info("query")
	logger.DPanic("bad")
	logger.Debug("trace")

	assert.Equal(t, 4, logs.Len())
	entries := c.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, capture.KindWarn, entries[0].Kind)
	assert.Equal(t, "hello Object(1) {n: 1}", entries[0].Text)
	assert.Equal(t, "[db] query", entries[1].Text)
	assert.Equal(t, capture.KindError, entries[2].Kind)
	assert.Equal(t, capture.KindDebug, entries[3].Kind)
}

func TestWrapCoreKeepsLiveErrors(t *testing.T) {
	c := New(Options{})
	c.Mount()
	logger := c.WrapLogger(zap.NewNop())

	logger.With(zap.String("component", "api")).Error("failed", zap.Error(fmt.Errorf("timeout")))

	entries := c.Entries()
	require.Len(t, entries, 1)
	fields := entries[0].Nodes[1].(*inspect.Container)
	errNode, ok := fields.Child("error")
	require.True(t, ok)
	assert.Equal(t, "errors.errorString", errNode.(*inspect.Container).Label)
	comp, _ := fields.Child("component")
	assert.Equal(t, `"api"`, comp.Text())
}

func TestZapSinks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(Options{})
	c.Install(NewZapSinks(zap.New(core)))

	c.Warn("a", 1)
	c.Debug("b")

	require.Equal(t, 2, logs.Len())
	all := logs.All()
	assert.Equal(t, "a 1", all[0].Message)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, zapcore.DebugLevel, all[1].Level)
}

func TestConcurrentLoggingAcrossMount(t *testing.T) {
	c := New(Options{PreBufferSize: 10000, PostBufferSize: 10000})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Log(g, i)
			}
		}(g)
	}
	c.Mount()
	wg.Wait()

	entries := c.Entries()
	assert.Len(t, entries, 800)
	for j := 1; j < len(entries); j++ {
		assert.False(t, entries[j].Time.Before(entries[j-1].Time))
	}
}
