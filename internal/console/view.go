package console

import (
	"strings"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"
	"devconsole/internal/logging"

	"golang.org/x/net/html"
)

// Entries returns the visible buffer, oldest first. It is empty before Mount.
func (c *Console) Entries() []capture.Entry {
	c.mu.Lock()
	post := c.post
	c.mu.Unlock()
	if post == nil {
		return nil
	}
	return post.Snapshot()
}

// Clear empties the visible buffer. The pre-mount buffer is untouched.
func (c *Console) Clear() {
	c.mu.Lock()
	post := c.post
	c.mu.Unlock()
	if post == nil {
		return
	}
	dropped := post.Len()
	post.Clear()
	logging.Audit().Clear(dropped)
}

// Filter selects entries by kind and by a case-insensitive substring of
// their text. An empty Kinds set matches every kind.
type Filter struct {
	Kinds  map[capture.Kind]bool
	Search string
}

// NewFilter returns a filter that shows every kind.
func NewFilter() Filter {
	kinds := make(map[capture.Kind]bool, len(capture.Kinds))
	for _, k := range capture.Kinds {
		kinds[k] = true
	}
	return Filter{Kinds: kinds}
}

// Toggle flips whether kind is shown.
func (f Filter) Toggle(kind capture.Kind) {
	f.Kinds[kind] = !f.Kinds[kind]
}

// Match reports whether e passes the filter.
func (f Filter) Match(e capture.Entry) bool {
	if len(f.Kinds) > 0 && !f.Kinds[e.Kind] {
		return false
	}
	if f.Search == "" {
		return true
	}
	// Entry text carries HTML-escaped string literals; search the plain form.
	return strings.Contains(strings.ToLower(html.UnescapeString(e.Text)), strings.ToLower(f.Search))
}

// Query returns the visible entries that pass f, in order.
func (c *Console) Query(f Filter) []capture.Entry {
	all := c.Entries()
	out := make([]capture.Entry, 0, len(all))
	for _, e := range all {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe calls fn for every entry appended after Mount. The returned
// func cancels the subscription.
func (c *Console) Subscribe(fn func(capture.Entry)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Invoke calls a zero-argument method found while formatting the object
// registered under objectID. Buffered entries are never modified.
func (c *Console) Invoke(objectID, prop string) (inspect.Node, error) {
	n, err := c.formatter.Invoke(objectID, prop)
	logging.AuditFor(logging.CategoryInspect).Invoke(objectID, prop, err)
	if err != nil {
		logging.InspectWarn("invoke %s.%s failed: %v", objectID, prop, err)
	}
	return n, err
}

// Expand re-formats the object registered under objectID.
func (c *Console) Expand(objectID string) (inspect.Node, error) {
	n, err := c.formatter.Expand(objectID)
	if err != nil {
		logging.InspectWarn("expand %s: %v", objectID, err)
		return nil, err
	}
	logging.Inspect("expanded %s", objectID)
	return n, nil
}
