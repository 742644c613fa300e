package browser

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"

	"github.com/go-rod/rod/lib/proto"
)

type eventThrottler struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[string]time.Time
}

func newEventThrottler(interval time.Duration) *eventThrottler {
	if interval <= 0 {
		return nil
	}
	return &eventThrottler{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

func (t *eventThrottler) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

// kindForConsoleType maps a page console method to an entry kind. Methods
// that only affect page-side grouping or timers are dropped.
func kindForConsoleType(t proto.RuntimeConsoleAPICalledType) (capture.Kind, bool) {
	switch t {
	case proto.RuntimeConsoleAPICalledTypeWarning:
		return capture.KindWarn, true
	case proto.RuntimeConsoleAPICalledTypeError, proto.RuntimeConsoleAPICalledTypeAssert:
		return capture.KindError, true
	case proto.RuntimeConsoleAPICalledTypeDebug, proto.RuntimeConsoleAPICalledTypeTrace:
		return capture.KindDebug, true
	case proto.RuntimeConsoleAPICalledTypeInfo:
		return capture.KindInfo, true
	case proto.RuntimeConsoleAPICalledTypeClear,
		proto.RuntimeConsoleAPICalledTypeStartGroup,
		proto.RuntimeConsoleAPICalledTypeStartGroupCollapsed,
		proto.RuntimeConsoleAPICalledTypeEndGroup,
		proto.RuntimeConsoleAPICalledTypeProfile,
		proto.RuntimeConsoleAPICalledTypeProfileEnd:
		return "", false
	}
	return capture.KindLog, true
}

func consoleArgs(args []*proto.RuntimeRemoteObject) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		out = append(out, remoteValue(a))
	}
	return out
}

func describeArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		parts = append(parts, a.Description)
	}
	return strings.Join(parts, " ")
}

// remoteValue converts a remote object into a local value the formatter
// understands. Objects sent by reference are rebuilt from their preview.
func remoteValue(o *proto.RuntimeRemoteObject) any {
	switch o.Type {
	case proto.RuntimeRemoteObjectTypeUndefined:
		return inspect.Undefined
	case proto.RuntimeRemoteObjectTypeBigint:
		n, ok := new(big.Int).SetString(strings.TrimSuffix(string(o.UnserializableValue), "n"), 10)
		if !ok {
			return o.Description
		}
		return n
	case proto.RuntimeRemoteObjectTypeSymbol:
		d := strings.TrimSuffix(strings.TrimPrefix(o.Description, "Symbol("), ")")
		return inspect.Symbol(d)
	case proto.RuntimeRemoteObjectTypeNumber:
		if o.UnserializableValue != "" {
			return unserializableNumber(string(o.UnserializableValue))
		}
	case proto.RuntimeRemoteObjectTypeFunction:
		return o.Description
	}

	switch o.Subtype {
	case proto.RuntimeRemoteObjectSubtypeNull:
		return nil
	case proto.RuntimeRemoteObjectSubtypePromise:
		return inspect.Pending("Promise")
	}
	if !o.Value.Nil() {
		return jsonValue(o.Value.JSON("", ""))
	}
	if o.Preview != nil {
		return previewValue(o.Preview)
	}
	return o.Description
}

func unserializableNumber(s string) any {
	switch s {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	case "-0":
		return math.Copysign(0, -1)
	}
	return s
}

func jsonValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// previewValue rebuilds an array or object from a shallow preview. Nested
// objects keep their preview text.
func previewValue(p *proto.RuntimeObjectPreview) any {
	if p.Subtype == proto.RuntimeObjectPreviewSubtypeArray {
		out := make([]any, 0, len(p.Properties))
		for _, prop := range p.Properties {
			out = append(out, previewProperty(prop))
		}
		return out
	}
	if p.Type != proto.RuntimeObjectPreviewTypeObject || p.Subtype != "" {
		return p.Description
	}
	out := make(map[string]any, len(p.Properties))
	for _, prop := range p.Properties {
		out[prop.Name] = previewProperty(prop)
	}
	return out
}

func previewProperty(p *proto.RuntimePropertyPreview) any {
	switch p.Type {
	case proto.RuntimePropertyPreviewTypeNumber:
		if f, err := strconv.ParseFloat(p.Value, 64); err == nil {
			return f
		}
		return unserializableNumber(p.Value)
	case proto.RuntimePropertyPreviewTypeBoolean:
		return p.Value == "true"
	case proto.RuntimePropertyPreviewTypeUndefined:
		return inspect.Undefined
	case proto.RuntimePropertyPreviewTypeString:
		return p.Value
	case proto.RuntimePropertyPreviewTypeObject:
		switch p.Subtype {
		case proto.RuntimePropertyPreviewSubtypeNull:
			return nil
		case proto.RuntimePropertyPreviewSubtypePromise:
			return inspect.Pending("Promise")
		}
		if p.ValuePreview != nil {
			return previewValue(p.ValuePreview)
		}
	}
	return p.Value
}

// exceptionMessage extracts the message of a thrown value without the
// constructor prefix or stack.
func exceptionMessage(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return "unknown error"
	}
	if ex := d.Exception; ex != nil {
		if ex.Description != "" {
			first, _, _ := strings.Cut(ex.Description, "\n")
			if msg, ok := strings.CutPrefix(first, "Error: "); ok && ex.ClassName == "Error" {
				return msg
			}
			return first
		}
		if !ex.Value.Nil() {
			return ex.Value.String()
		}
	}
	return d.Text
}
