package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryBrowsing(t *testing.T) {
	h := NewHistory(0)
	h.Push("a")
	h.Push("b")
	h.Push("c")
	assert.Equal(t, []string{"c", "b", "a"}, h.Items())

	_, ok := h.Next()
	assert.False(t, ok, "next without browsing")

	steps := []struct {
		prev bool
		want string
		ok   bool
	}{
		{true, "c", true},
		{true, "b", true},
		{true, "a", true},
		{true, "", false},
		{false, "b", true},
		{false, "c", true},
		{false, "", true},
		{false, "", false},
	}
	for i, s := range steps {
		var got string
		var ok bool
		if s.prev {
			got, ok = h.Prev()
		} else {
			got, ok = h.Next()
		}
		assert.Equal(t, s.want, got, "step %d", i)
		assert.Equal(t, s.ok, ok, "step %d", i)
	}
	assert.False(t, h.Browsing())
}

func TestHistoryCapAndDuplicates(t *testing.T) {
	h := NewHistory(3)
	for _, s := range []string{"x", "x", "y", "z"} {
		h.Push(s)
	}
	assert.Equal(t, []string{"z", "y", "x"}, h.Items())
}

func TestHistoryPushResetsCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("a")
	h.Prev()
	assert.True(t, h.Browsing())
	h.Push("b")
	assert.False(t, h.Browsing())
	h.Prev()
	h.Reset()
	assert.False(t, h.Browsing())
}
