package ui

import (
	"fmt"
	"strings"

	"devconsole/internal/capture"
	"devconsole/internal/console"
	"devconsole/internal/evaluate"
	"devconsole/internal/logging"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 1
	footerHeight = 1
	searchHeight = 1
	promptLines  = 3
	promptChrome = 2 // rounded border
)

// Options configures the model.
type Options struct {
	Console *console.Console
	Bridge  *evaluate.Bridge
	Title   string
	Styles  *Styles
}

type entriesChangedMsg struct{}

type evalDoneMsg struct{}

// Model is the bubbletea model of the console panel.
type Model struct {
	console *console.Console
	bridge  *evaluate.Bridge
	title   string
	styles  Styles

	viewport viewport.Model
	prompt   textarea.Model
	search   textinput.Model

	filter    console.Filter
	searching bool
	collapsed bool
	expanded  map[string]bool
	results   map[invokeKey]string
	help      string
	status    string
	statusErr bool
	running   int
	shown     int
	total     int

	updates     chan struct{}
	unsubscribe func()

	width, height int
	ready         bool
}

// New creates the model and subscribes it to the console.
func New(opts Options) Model {
	styles := NewStyles(DetectTheme())
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	title := opts.Title
	if title == "" {
		title = "devconsole"
	}

	ta := textarea.New()
	ta.Placeholder = "Evaluate… (:help for commands)"
	ta.ShowLineNumbers = false
	ta.SetHeight(promptLines)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = ""

	updates := make(chan struct{}, 1)
	unsubscribe := opts.Console.Subscribe(func(capture.Entry) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	return Model{
		console:     opts.Console,
		bridge:      opts.Bridge,
		title:       title,
		styles:      styles,
		prompt:      ta,
		search:      ti,
		filter:      console.NewFilter(),
		expanded:    make(map[string]bool),
		results:     make(map[invokeKey]string),
		updates:     updates,
		unsubscribe: unsubscribe,
	}
}

// Close detaches the model from the console.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEntries())
}

func (m Model) waitForEntries() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		<-ch
		return entriesChangedMsg{}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, 1)
			m.ready = true
		}
		m.layout()
		m.refresh()
		return m, nil

	case entriesChangedMsg:
		m.refresh()
		return m, m.waitForEntries()

	case evalDoneMsg:
		if m.running > 0 {
			m.running--
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "f1", "f2", "f3", "f4", "f5", "f6":
		i := int(key[1] - '1')
		kind := capture.Kinds[i]
		m.filter.Toggle(kind)
		m.setStatus(fmt.Sprintf("%s %s", kind, onOff(m.filter.Kinds[kind])), false)
		m.refresh()
		return m, nil
	case "ctrl+l":
		m.clear()
		return m, nil
	case "ctrl+f":
		m.searching = true
		m.prompt.Blur()
		m.layout()
		return m, m.search.Focus()
	case "esc":
		switch {
		case m.help != "":
			m.help = ""
			m.refresh()
		case m.searching:
			m.stopSearch()
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.searching {
		if key == "enter" {
			m.stopSearch()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.filter.Search = m.search.Value()
		m.refresh()
		return m, cmd
	}

	switch key {
	case "tab":
		m.collapsed = !m.collapsed
		if m.collapsed {
			m.prompt.Blur()
		} else {
			m.prompt.Focus()
		}
		m.layout()
		return m, nil
	case "enter":
		return m.submit()
	case "alt+enter":
		if !m.collapsed {
			m.prompt.InsertString("\n")
		}
		return m, nil
	case "up":
		if m.prompt.Line() == 0 && m.bridge != nil {
			if src, ok := m.bridge.History().Prev(); ok {
				m.prompt.SetValue(src)
				m.prompt.CursorEnd()
			}
			return m, nil
		}
	case "down":
		if m.prompt.Line() == m.prompt.LineCount()-1 && m.bridge != nil {
			if src, ok := m.bridge.History().Next(); ok {
				m.prompt.SetValue(src)
				m.prompt.CursorEnd()
			}
			return m, nil
		}
	}

	if m.collapsed {
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) stopSearch() {
	m.searching = false
	m.search.Blur()
	if !m.collapsed {
		m.prompt.Focus()
	}
	m.layout()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	src := m.prompt.Value()
	line := strings.TrimSpace(src)
	if line == "" || m.collapsed {
		return m, nil
	}
	m.prompt.Reset()
	if strings.HasPrefix(line, ":") {
		m.runCommand(line)
		return m, nil
	}
	if m.bridge == nil {
		m.setStatus("no evaluator", true)
		return m, nil
	}
	m.running++
	m.setStatus("", false)
	b := m.bridge
	return m, func() tea.Msg {
		b.Submit(src)
		return evalDoneMsg{}
	}
}

func (m *Model) clear() {
	m.console.Clear()
	m.expanded = make(map[string]bool)
	m.results = make(map[invokeKey]string)
	m.setStatus("console cleared", false)
	m.refresh()
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) layout() {
	if !m.ready {
		return
	}
	promptHeight := 1
	if !m.collapsed {
		promptHeight = promptLines + promptChrome
	}
	h := m.height - headerHeight - footerHeight - promptHeight
	if m.searching || m.filter.Search != "" {
		h -= searchHeight
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.prompt.SetWidth(max(m.width-4, 10))
	m.search.Width = max(m.width-4, 10)
}

func (m *Model) refresh() {
	entries := m.console.Query(m.filter)
	m.shown = len(entries)
	m.total = len(m.console.Entries())
	if !m.ready {
		return
	}
	if m.help != "" {
		m.viewport.SetContent(m.help)
		m.viewport.GotoTop()
		return
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = renderEntry(m.styles, e, m.expanded, m.results)
	}
	m.viewport.SetContent(strings.Join(parts, "\n"))
	m.viewport.GotoBottom()
	logging.UIDebug("rendered %d/%d entries", m.shown, m.total)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	sections := []string{m.headerView(), m.viewport.View()}
	if m.searching || m.filter.Search != "" {
		sections = append(sections, m.styles.Muted.Render("/ ")+m.search.View())
	}
	if m.collapsed {
		sections = append(sections, m.styles.Muted.Render("› prompt hidden (tab)"))
	} else {
		sections = append(sections, m.styles.Prompt.Width(max(m.width-2, 10)).Render(m.prompt.View()))
	}
	sections = append(sections, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	badges := make([]string, len(capture.Kinds))
	for i, k := range capture.Kinds {
		label := fmt.Sprintf("F%d %s", i+1, k)
		if m.filter.Kinds[k] {
			badges[i] = m.styles.Badge.Render(label)
		} else {
			badges[i] = m.styles.BadgeOff.Render(label)
		}
	}
	count := m.styles.Muted.Render(fmt.Sprintf("%d/%d", m.shown, m.total))
	return m.styles.Title.Render(m.title) + "  " + strings.Join(badges, " ") + "  " + count
}

func (m Model) footerView() string {
	if m.running > 0 {
		return m.styles.Status.Render("evaluating…")
	}
	if m.status != "" {
		if m.statusErr {
			return m.styles.ErrStatus.Render(m.status)
		}
		return m.styles.Status.Render(m.status)
	}
	return m.styles.Muted.Render("enter run · alt+enter newline · :help · ctrl+c quit")
}

func onOff(b bool) string {
	if b {
		return "shown"
	}
	return "hidden"
}
