package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devconsole/cmd/devconsole/ui"
	"devconsole/internal/browser"
	"devconsole/internal/evaluate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	attachTarget  string
	attachLaunch  []string
	attachHeadful bool
)

var attachCmd = &cobra.Command{
	Use:   "attach [url]",
	Short: "Attach the console to a browser page",
	Long: `Connects to a browser over the DevTools protocol (browser.debugger_url or
DEVCONSOLE_DEBUGGER_URL, otherwise a browser is launched), opens url or
follows the first page, streams its console calls into the log and evaluates
prompt input in the page.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachTarget, "target", "", "Attach to an existing target id instead of opening a page")
	attachCmd.Flags().StringSliceVar(&attachLaunch, "launch", nil, "Browser binary followed by extra flags")
	attachCmd.Flags().BoolVar(&attachHeadful, "headful", false, "Show the launched browser window")
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bc := browser.Config{
		DebuggerURL:   cfg.Browser.DebuggerURL,
		Headless:      cfg.Browser.Headless && !attachHeadful,
		Timeout:       cfg.GetBrowserTimeout(),
		EventThrottle: cfg.GetEventThrottle(),
		Launch:        attachLaunch,
	}
	if len(bc.Launch) == 0 && cfg.Browser.Bin != "" {
		bc.Launch = []string{cfg.Browser.Bin}
	}
	host := browser.NewHost(bc, cons)
	defer func() {
		if err := host.Shutdown(); err != nil {
			logger.Warn("browser shutdown", zap.Error(err))
		}
	}()

	url := ""
	if len(args) == 1 {
		url = args[0]
	}
	var (
		session *browser.Session
		err     error
	)
	if attachTarget != "" {
		session, err = host.AttachTarget(ctx, attachTarget)
	} else {
		session, err = host.Open(ctx, url)
	}
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	logger.Info("attached", zap.String("url", session.URL), zap.String("target", session.TargetID))

	cons.Mount()
	bridge := evaluate.NewBridge(cons, host, cfg.Console.HistorySize)
	m := ui.New(ui.Options{Console: cons, Bridge: bridge, Title: "devconsole · " + session.URL})
	defer m.Close()

	g, gctx := errgroup.WithContext(ctx)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))
	pumpCtx, stopPump := context.WithCancel(gctx)
	g.Go(func() error {
		return host.Pump(pumpCtx)
	})
	g.Go(func() error {
		defer stopPump()
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
