package main

import (
	"fmt"
	"io"

	"devconsole/cmd/devconsole/ui"
	"devconsole/internal/evaluate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replCmd = &cobra.Command{
	Use:         "repl",
	Short:       "Start the console with a local Go interpreter",
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	bridge, err := newGoBridge(io.Discard)
	if err != nil {
		return err
	}
	return runUI(ui.Options{Console: cons, Bridge: bridge, Title: "devconsole · go"})
}

// newGoBridge builds a bridge over a yaegi interpreter whose "console"
// package logs into the console. Interpreter stdout goes to out.
func newGoBridge(out io.Writer) (*evaluate.Bridge, error) {
	opts := cfg.YaegiOptions()
	opts.Console = cons
	opts.Stdout = out
	opts.Stderr = out
	y, err := evaluate.NewYaegi(opts)
	if err != nil {
		return nil, fmt.Errorf("start interpreter: %w", err)
	}
	return evaluate.NewBridge(cons, y, cfg.Console.HistorySize), nil
}

// runUI mounts the console, replaying everything logged during startup,
// and runs the terminal UI until the user quits.
func runUI(opts ui.Options) error {
	cons.Mount()
	logger.Debug("console mounted", zap.Int("replayed", len(cons.Entries())))

	m := ui.New(opts)
	defer m.Close()
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
