// Command devconsole is an interactive log console: it captures log calls,
// renders their arguments as inspectable object trees and evaluates input
// at a prompt, locally in a Go interpreter or in an attached browser page.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"devconsole/internal/config"
	"devconsole/internal/console"
	"devconsole/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Set up by PersistentPreRunE
	cfg    *config.Config
	cons   *console.Console
	logger *zap.Logger
)

// annotationTUI marks commands that own the terminal; their zap output goes
// to a file instead of stderr.
const annotationTUI = "tui"

var rootCmd = &cobra.Command{
	Use:   "devconsole",
	Short: "Interactive log console with object inspection and evaluation",
	Long: `devconsole captures log calls into a bounded buffer, renders each
argument as an expandable, cycle-safe object tree and evaluates input at a
prompt, echoing the outcome back into the log.

Run without arguments to start the local Go REPL.`,
	SilenceUsage:      true,
	Annotations:       map[string]string{annotationTUI: "true"},
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: runRepl,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.devconsole/config.yaml)")

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, starts the file loggers and builds the console with
// the zap logger as its original sinks.
func setup(cmd *cobra.Command, args []string) error {
	ws := workspace
	if ws == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		ws = wd
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(ws); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logging.InitAudit(); err != nil {
		logging.BootError("audit log unavailable: %v", err)
	}
	logging.BootDebug("config %s: pre=%d post=%d history=%d", path,
		cfg.Console.PreBufferSize, cfg.Console.PostBufferSize, cfg.Console.HistorySize)

	base, err := buildLogger(ws, cmd.Annotations[annotationTUI] == "true")
	if err != nil {
		return err
	}

	cons = console.New(cfg.ConsoleOptions())
	cons.Install(console.NewZapSinks(base))
	logger = cons.WrapLogger(base)
	logging.Boot("devconsole %s started in %s (config %s)", version, ws, path)
	return nil
}

func buildLogger(ws string, toFile bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if toFile {
		dir := filepath.Join(ws, config.Dir, "logs")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		zc.OutputPaths = []string{filepath.Join(dir, "devconsole.jsonl")}
		zc.ErrorOutputPaths = zc.OutputPaths
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}
