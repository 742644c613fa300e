package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devconsole/cmd/devconsole/ui"
	"devconsole/internal/capture"
	"devconsole/internal/evaluate"

	"github.com/spf13/cobra"
)

var evalWatch bool

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a Go file and print the console output",
	Long: `Evaluates the file in the Go interpreter and prints every console entry
it produces. With --watch the file is evaluated again on every save, in the
same interpreter, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalWatch, "watch", false, "Re-evaluate the file whenever it changes")
}

func runEval(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	bridge, err := newGoBridge(out)
	if err != nil {
		return err
	}

	styles := ui.NewStyles(ui.DetectTheme())
	cons.Mount()
	for _, e := range cons.Entries() {
		fmt.Fprintln(out, ui.RenderPlain(styles, e))
	}
	cancel := cons.Subscribe(func(e capture.Entry) {
		fmt.Fprintln(out, ui.RenderPlain(styles, e))
	})
	defer cancel()

	if !evalWatch {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		bridge.Submit(string(src))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w, err := evaluate.NewWatcher(args[0], bridge)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	<-ctx.Done()
	return nil
}
