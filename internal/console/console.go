// Package console intercepts logging calls, keeps them in bounded buffers
// and exposes the captured entries to a presentation layer.
//
// A Console starts in the pre-mount phase: calls are forwarded to the
// original sinks and kept as lightly cloned records. Mount switches it,
// once, to the mounted phase: pre-mount records are replayed through the
// formatter into the visible buffer and every later call is formatted
// immediately.
package console

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"
	"devconsole/internal/logging"
)

// Options configures a Console. Zero values fall back to the defaults.
type Options struct {
	PreBufferSize  int
	PostBufferSize int
	Inspect        inspect.Options
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

const (
	DefaultPreBufferSize  = 1000
	DefaultPostBufferSize = 500
)

// Record is a pre-mount capture: arguments are kept close to raw.
type Record struct {
	Kind capture.Kind
	Args []any
	Time time.Time
}

// Console is the capture context shared by the interception layer, the
// evaluation bridge and the presentation layer.
type Console struct {
	mu        sync.Mutex
	opts      Options
	formatter *inspect.Formatter
	clock     capture.Clock

	sinks     Sinks
	installed bool

	pre     *capture.Ring[Record]
	mounted bool
	post    *capture.Ring[capture.Entry]
	// backlog holds live entries that arrive while Mount is replaying.
	backlog []capture.Entry

	subs    map[int]func(capture.Entry)
	nextSub int
}

// New creates a Console in the pre-mount phase.
func New(opts Options) *Console {
	if opts.PreBufferSize <= 0 {
		opts.PreBufferSize = DefaultPreBufferSize
	}
	if opts.PostBufferSize <= 0 {
		opts.PostBufferSize = DefaultPostBufferSize
	}
	c := &Console{
		opts:      opts,
		formatter: inspect.NewFormatter(nil, opts.Inspect),
		clock:     capture.Clock{Now: opts.Now},
		pre:       capture.NewRing[Record](opts.PreBufferSize),
		subs:      make(map[int]func(capture.Entry)),
	}
	logging.CaptureDebug("console created: pre=%d post=%d", opts.PreBufferSize, opts.PostBufferSize)
	return c
}

// Install records the original sinks. Only the first call has an effect;
// it reports whether the sinks were taken.
func (c *Console) Install(sinks Sinks) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.installed {
		logging.CaptureDebug("install ignored: sinks already recorded")
		return false
	}
	c.sinks = sinks
	c.installed = true
	return true
}

// Installed reports whether Install has run.
func (c *Console) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// Formatter returns the formatter used for mounted-phase entries.
func (c *Console) Formatter() *inspect.Formatter { return c.formatter }

// PreBuffer returns the pre-mount ring.
func (c *Console) PreBuffer() *capture.Ring[Record] { return c.pre }

func (c *Console) Log(args ...any)   { c.Emit(capture.KindLog, args...) }
func (c *Console) Warn(args ...any)  { c.Emit(capture.KindWarn, args...) }
func (c *Console) Error(args ...any) { c.Emit(capture.KindError, args...) }
func (c *Console) Info(args ...any)  { c.Emit(capture.KindInfo, args...) }
func (c *Console) Debug(args ...any) { c.Emit(capture.KindDebug, args...) }

// Emit forwards args to the original sink for kind, then captures them.
func (c *Console) Emit(kind capture.Kind, args ...any) {
	c.mu.Lock()
	sink := c.sinks.For(kind)
	c.mu.Unlock()
	if sink != nil {
		sink(args...)
	}
	c.capture(kind, args, false)
}

// Append captures args without forwarding them to any sink.
func (c *Console) Append(kind capture.Kind, args ...any) {
	c.capture(kind, args, false)
}

// AppendMessage captures a plain text entry without forwarding it.
func (c *Console) AppendMessage(kind capture.Kind, text string) {
	c.capture(kind, []any{text}, true)
}

func (c *Console) capture(kind capture.Kind, args []any, message bool) {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()

	if !mounted {
		cloned := cloneArgs(args)
		c.mu.Lock()
		if !c.mounted {
			c.pre.Push(Record{Kind: kind, Args: cloned, Time: c.clock.Stamp()})
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}

	var e capture.Entry
	if message {
		e = capture.NewMessage(kind, fmt.Sprint(args...), time.Time{})
	} else {
		e = capture.NewFormatted(kind, c.formatArgs(args), time.Time{})
	}

	c.mu.Lock()
	e.Time = c.clock.Stamp()
	if c.post == nil {
		c.backlog = append(c.backlog, e)
		c.mu.Unlock()
		return
	}
	c.post.Push(e)
	subs := c.subscribers()
	c.mu.Unlock()
	notify(subs, e)
}

func (c *Console) formatArgs(args []any) []inspect.Node {
	nodes := make([]inspect.Node, len(args))
	for i, a := range args {
		nodes[i] = c.formatter.FormatArg(a)
	}
	return nodes
}

// Mount switches to the mounted phase and replays the pre-mount buffer,
// in order and with the original timestamps, into a fresh visible buffer.
// Only the first call has an effect.
func (c *Console) Mount() bool {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return false
	}
	c.mounted = true
	records := c.pre.Snapshot()
	c.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryCapture, "mount replay")
	replayed := make([]capture.Entry, len(records))
	for i, r := range records {
		replayed[i] = capture.NewFormatted(r.Kind, c.formatArgs(r.Args), r.Time)
	}

	post := capture.NewRing[capture.Entry](c.opts.PostBufferSize)
	for _, e := range replayed {
		post.Push(e)
	}

	c.mu.Lock()
	backlog := c.backlog
	c.backlog = nil
	for _, e := range backlog {
		post.Push(e)
	}
	c.post = post
	subs := c.subscribers()
	c.mu.Unlock()

	for _, e := range backlog {
		notify(subs, e)
	}
	timer.Stop()
	logging.Capture("mounted: replayed %d pre-mount records", len(records))
	logging.Audit().Mount(len(records))
	return true
}

// Mounted reports whether Mount has run.
func (c *Console) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// cloneArgs detaches pre-mount arguments from live values. Object-like
// values go through a JSON round trip of their serialized form and fall
// back to their fmt rendering.
func cloneArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = cloneArg(a)
	}
	return out
}

func cloneArg(a any) (out any) {
	if keepRaw(a) {
		return a
	}
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[%T]", a)
		}
	}()
	var v any
	if err := json.Unmarshal([]byte(inspect.Serialize(a)), &v); err == nil {
		return v
	}
	return fmt.Sprint(a)
}

func keepRaw(a any) bool {
	switch a.(type) {
	case nil, string, bool, inspect.UndefinedType, inspect.Symbol, time.Duration, time.Time:
		return true
	}
	switch reflect.ValueOf(a).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
		return true
	}
	return false
}

func (c *Console) subscribers() []func(capture.Entry) {
	out := make([]func(capture.Entry), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []func(capture.Entry), e capture.Entry) {
	for _, fn := range subs {
		fn(e)
	}
}
