package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# devconsole

Type Go (or page script when attached) at the prompt and press **enter**.

## Keys

| Key | Action |
| --- | --- |
| enter | run the prompt |
| alt+enter | new line |
| up / down | history, at the first / last prompt line |
| tab | collapse or expand the prompt |
| F1-F6 | toggle log, warn, error, info, debug, result |
| ctrl+f | search entries, esc to leave |
| ctrl+l | clear the log |
| pgup / pgdown | scroll |
| ctrl+c | quit |

## Commands

- ` + "`:expand <id>`" + ` show or hide an object's body
- ` + "`:invoke <id> <prop>`" + ` call a method and show the result in place
- ` + "`:clear`" + ` clear the log
- ` + "`:help`" + ` this page, esc to close

Object ids are shown next to each object; any unambiguous prefix works.
`

// renderHelp renders the help page for the given width. It falls back to
// the raw markdown when rendering fails.
func renderHelp(width int) string {
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}
