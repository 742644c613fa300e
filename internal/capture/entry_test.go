package capture

import (
	"testing"
	"time"

	"devconsole/internal/inspect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		err  bool
	}{
		{"log", KindLog, false},
		{"WARN", KindWarn, false},
		{"warning", KindWarn, false},
		{" result ", KindResult, false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewFormattedJoinsWithSpace(t *testing.T) {
	at := time.Unix(10, 0)
	e := NewFormatted(KindLog, []inspect.Node{
		&inspect.Primitive{Kind: inspect.KindString, Literal: "count"},
		&inspect.Primitive{Kind: inspect.KindNumber, Literal: "3"},
	}, at)
	assert.Equal(t, "count 3", e.Text)
	assert.Equal(t, at, e.Time)

	m := NewMessage(KindError, "Error: x", at)
	assert.Nil(t, m.Nodes)
	assert.Equal(t, "Error: x", m.Text)
}

func TestClockIsMonotonic(t *testing.T) {
	base := time.Unix(100, 0)
	times := []time.Time{base, base.Add(-time.Second), base.Add(time.Second)}
	i := 0
	c := Clock{Now: func() time.Time { t := times[i]; i++; return t }}

	assert.Equal(t, base, c.Stamp())
	assert.Equal(t, base, c.Stamp())
	assert.Equal(t, base.Add(time.Second), c.Stamp())
	assert.Equal(t, base.Add(time.Second), c.Observe(base))
}
