package evaluate

import "sync"

// History keeps submitted sources, most recent first, and a browsing
// cursor for up/down navigation. A cursor of -1 means "not browsing".
type History struct {
	mu     sync.Mutex
	items  []string
	limit  int
	cursor int
}

// NewHistory creates a history holding at most limit items.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit, cursor: -1}
}

// Push prepends src. Duplicates are kept.
func (h *History) Push(src string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append([]string{src}, h.items...)
	if len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
	h.cursor = -1
}

// Items returns a copy, most recent first.
func (h *History) Items() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.items...)
}

// Len returns the number of items.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Prev moves to the next older item. ok is false when there is none.
func (h *History) Prev() (src string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= len(h.items)-1 {
		return "", false
	}
	h.cursor++
	return h.items[h.cursor], true
}

// Next moves to the next newer item. Stepping past the newest item stops
// browsing and yields an empty prompt.
func (h *History) Next() (src string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.cursor > 0:
		h.cursor--
		return h.items[h.cursor], true
	case h.cursor == 0:
		h.cursor = -1
		return "", true
	}
	return "", false
}

// Reset stops browsing.
func (h *History) Reset() {
	h.mu.Lock()
	h.cursor = -1
	h.mu.Unlock()
}

// Browsing reports whether the cursor is on an item.
func (h *History) Browsing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}
