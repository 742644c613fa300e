package capture

import (
	"fmt"
	"strings"
	"time"

	"devconsole/internal/inspect"
)

// Kind tags a captured entry.
type Kind string

const (
	KindLog   Kind = "log"
	KindWarn  Kind = "warn"
	KindError Kind = "error"
	KindInfo  Kind = "info"
	KindDebug Kind = "debug"
	// KindResult is reserved for evaluation outcomes.
	KindResult Kind = "result"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindLog, KindWarn, KindError, KindInfo, KindDebug, KindResult}

// SinkKinds are the kinds backed by an original logging sink.
var SinkKinds = []Kind{KindLog, KindWarn, KindError, KindInfo, KindDebug}

// ParseKind maps a name (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	if k == "warning" {
		return KindWarn, nil
	}
	return "", fmt.Errorf("unknown log kind %q", s)
}

// Entry is one captured log line. Nodes holds the formatted arguments;
// it is nil when the payload is a bare message, in which case Text is the
// message itself.
type Entry struct {
	Kind  Kind
	Nodes []inspect.Node
	Text  string
	Time  time.Time
}

// NewMessage builds an entry whose payload is a plain string.
func NewMessage(kind Kind, text string, at time.Time) Entry {
	return Entry{Kind: kind, Text: text, Time: at}
}

// NewFormatted builds an entry from formatted nodes; Text is their
// renderings joined by a single space.
func NewFormatted(kind Kind, nodes []inspect.Node, at time.Time) Entry {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Text()
	}
	return Entry{Kind: kind, Nodes: nodes, Text: strings.Join(parts, " "), Time: at}
}

// Clock returns times that never go backwards, even when the wall clock does.
type Clock struct {
	Now  func() time.Time
	last time.Time
}

// Stamp returns max(now, last stamp) and records it.
func (c *Clock) Stamp() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Observe(now())
}

// Observe clamps t to the last observed time and records it.
func (c *Clock) Observe(t time.Time) time.Time {
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
