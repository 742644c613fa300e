package ui

import (
	"fmt"
	"sort"
	"strings"

	"devconsole/internal/inspect"
	"devconsole/internal/logging"
)

// runCommand handles a ":" prompt command.
func (m *Model) runCommand(line string) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return
	}
	logging.UI("command %s", fields[0])

	switch fields[0] {
	case "clear":
		m.clear()
	case "help":
		m.help = renderHelp(m.width)
		m.setStatus("esc closes help", false)
		m.refresh()
	case "expand":
		if len(fields) != 2 {
			m.setStatus("usage: :expand <id>", true)
			return
		}
		m.expand(fields[1])
	case "invoke":
		if len(fields) != 3 {
			m.setStatus("usage: :invoke <id> <prop>", true)
			return
		}
		m.invoke(fields[1], fields[2])
	default:
		m.setStatus(fmt.Sprintf("unknown command :%s (try :help)", fields[0]), true)
	}
}

func (m *Model) expand(prefix string) {
	id, top, err := m.resolveID(prefix)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if top {
		m.expanded[id] = !m.expanded[id]
		m.setStatus("", false)
		m.refresh()
		return
	}
	n, err := m.console.Expand(id)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(shortID(id)+": "+n.Text(), false)
}

func (m *Model) invoke(prefix, prop string) {
	id, top, err := m.resolveID(prefix)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	var text string
	n, err := m.console.Invoke(id, prop)
	if err != nil {
		text = "Error: " + err.Error()
	} else {
		text = n.Text()
	}
	m.results[invokeKey{id, prop}] = text
	if top {
		m.expanded[id] = true
	}
	m.setStatus(prop+" → "+text, err != nil)
	m.refresh()
}

// resolveID maps a prefix to a unique object id among the visible entries.
// top reports whether the id is a top-level argument of an entry. An
// unknown prefix is passed through so the registry can reject it.
func (m *Model) resolveID(prefix string) (id string, top bool, err error) {
	entries := m.console.Entries()
	tops := make(map[string]bool)
	for _, e := range entries {
		for _, c := range containers(e) {
			tops[c.ID] = true
		}
	}

	matches := make(map[string]bool)
	walkContainers(entries, func(c *inspect.Container) {
		if strings.HasPrefix(c.ID, prefix) {
			matches[c.ID] = true
		}
	})
	switch len(matches) {
	case 0:
		return prefix, false, nil
	case 1:
		for id := range matches {
			return id, tops[id], nil
		}
	}
	if matches[prefix] {
		return prefix, tops[prefix], nil
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, shortID(id))
	}
	sort.Strings(ids)
	return "", false, fmt.Errorf("ambiguous id %s: %s", prefix, strings.Join(ids, ", "))
}
