package ui

import (
	"fmt"
	"strings"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"

	"golang.org/x/net/html"
)

const timeLayout = "15:04:05.000"

type invokeKey struct {
	id, prop string
}

// renderEntry renders one entry: timestamp, kind, text, and a summary line
// per object argument. Expanded objects show their highlighted body, with
// the result of any invoked method next to its line. A nil results map
// leaves out the invoke hints.
func renderEntry(st Styles, e capture.Entry, expanded map[string]bool, results map[invokeKey]string) string {
	var b strings.Builder
	ks := st.Kind(e.Kind)
	b.WriteString(st.Timestamp.Render(e.Time.Format(timeLayout)))
	b.WriteString(" ")
	b.WriteString(ks.Render(fmt.Sprintf("%-6s", e.Kind)))
	b.WriteString(" ")
	b.WriteString(ks.Render(html.UnescapeString(e.Text)))

	for _, c := range containers(e) {
		marker := "▸"
		if expanded[c.ID] {
			marker = "▾"
		}
		b.WriteString("\n    ")
		b.WriteString(st.Marker.Render(marker))
		b.WriteString(" ")
		b.WriteString(st.Muted.Render(c.Header() + " " + shortID(c.ID)))
		if !expanded[c.ID] {
			continue
		}
		for _, line := range inspect.Highlight(c.Serialized, c.ID) {
			b.WriteString("\n      ")
			b.WriteString(renderLine(st, line))
			if !line.Interactive() || results == nil {
				continue
			}
			if r, ok := results[invokeKey{c.ID, line.Property}]; ok {
				b.WriteString(" " + st.Result.Render("→ "+html.UnescapeString(r)))
			} else {
				b.WriteString(" " + st.Muted.Render(fmt.Sprintf("(:invoke %s %s)", shortID(c.ID), line.Property)))
			}
		}
	}
	return b.String()
}

func renderLine(st Styles, line inspect.Line) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", line.Indent))
	for _, t := range line.Tokens {
		b.WriteString(st.Token(t.Class).Render(t.Text))
	}
	return b.String()
}

// containers returns the entry's top-level object arguments.
func containers(e capture.Entry) []*inspect.Container {
	var out []*inspect.Container
	for _, n := range e.Nodes {
		if c, ok := n.(*inspect.Container); ok && c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

// walkContainers visits every container reachable from the entries.
func walkContainers(entries []capture.Entry, fn func(*inspect.Container)) {
	var visit func(n inspect.Node)
	visit = func(n inspect.Node) {
		c, ok := n.(*inspect.Container)
		if !ok {
			return
		}
		if c.ID != "" {
			fn(c)
		}
		for _, ch := range c.Children {
			visit(ch.Node)
		}
	}
	for _, e := range entries {
		for _, n := range e.Nodes {
			visit(n)
		}
	}
}

// shortID is the displayed form of a registry id; commands accept any
// unambiguous prefix.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// RenderPlain renders an entry with every object argument expanded, for
// output that is not interactive.
func RenderPlain(st Styles, e capture.Entry) string {
	expanded := make(map[string]bool)
	for _, c := range containers(e) {
		expanded[c.ID] = true
	}
	return renderEntry(st, e, expanded, nil)
}
