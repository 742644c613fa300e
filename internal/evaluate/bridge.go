// Package evaluate runs submitted source text through an evaluator and
// feeds the outcome back into the console as log entries.
package evaluate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"
	"devconsole/internal/logging"
)

// Evaluator evaluates source text and returns its value. A nil error with
// inspect.Undefined means the source produced no value.
type Evaluator interface {
	Eval(src string) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(src string) (any, error)

func (f EvaluatorFunc) Eval(src string) (any, error) { return f(src) }

// Log is the part of the console the bridge writes to.
type Log interface {
	Append(kind capture.Kind, args ...any)
	AppendMessage(kind capture.Kind, text string)
}

// EchoPrefix marks echoed input.
const EchoPrefix = "› "

// DefaultHistorySize is the number of submissions kept.
const DefaultHistorySize = 50

// Bridge connects an Evaluator to a console Log.
type Bridge struct {
	log     Log
	eval    Evaluator
	history *History
}

// NewBridge creates a bridge. historySize <= 0 uses DefaultHistorySize.
func NewBridge(log Log, eval Evaluator, historySize int) *Bridge {
	return &Bridge{log: log, eval: eval, history: NewHistory(historySize)}
}

// History returns the submission history.
func (b *Bridge) History() *History { return b.history }

// Submit evaluates src. Blank input is ignored. The input is echoed as an
// info entry and the outcome appended as a result or error entry.
func (b *Bridge) Submit(src string) {
	if strings.TrimSpace(src) == "" {
		return
	}
	b.log.AppendMessage(capture.KindInfo, EchoPrefix+src)
	b.history.Push(src)
	audit := logging.AuditFor(logging.CategoryEval)
	audit.EvalSubmit(src)

	start := time.Now()
	v, err := b.safeEval(src)
	elapsed := time.Since(start)
	audit.EvalDone(src, elapsed, err)
	logging.Get(logging.CategoryEval).StructuredLog("info", "evaluated", map[string]any{
		"bytes":       len(src),
		"duration_ms": elapsed.Milliseconds(),
		"failed":      err != nil,
	})

	switch {
	case err != nil:
		logging.EvalDebug("eval failed: %v", err)
		b.log.AppendMessage(capture.KindError, "Error: "+err.Error())
	case v == inspect.Undefined:
		b.log.AppendMessage(capture.KindResult, "undefined")
	default:
		b.log.Append(capture.KindResult, v)
	}
	b.history.Reset()
}

func (b *Bridge) safeEval(src string) (v any, err error) {
	if b.eval == nil {
		return nil, errors.New("no evaluator configured")
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return b.eval.Eval(src)
}
