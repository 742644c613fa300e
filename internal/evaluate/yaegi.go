package evaluate

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"devconsole/internal/inspect"
	"devconsole/internal/logging"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ConsoleAPI is exposed to evaluated code as package "console".
type ConsoleAPI interface {
	Log(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Info(args ...any)
	Debug(args ...any)
}

// YaegiOptions configures the Go evaluator.
type YaegiOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	// Console, when set, is importable as "console".
	Console ConsoleAPI
	// Imports are imported before the first evaluation.
	Imports []string
	// Symbols are extra packages made importable.
	Symbols interp.Exports
	// Timeout bounds a single evaluation; zero means none.
	Timeout time.Duration
}

// DefaultImports are available at the prompt without an import statement.
var DefaultImports = []string{"fmt", "strings", "strconv", "math", "time", "errors", "sort"}

// Yaegi evaluates Go source in a persistent interpreter: declarations from
// one submission are visible to the next.
type Yaegi struct {
	mu      sync.Mutex
	i       *interp.Interpreter
	timeout time.Duration
}

// NewYaegi creates an interpreter with the standard library loaded.
func NewYaegi(opts YaegiOptions) (*Yaegi, error) {
	i := interp.New(interp.Options{Stdout: opts.Stdout, Stderr: opts.Stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if opts.Symbols != nil {
		if err := i.Use(opts.Symbols); err != nil {
			return nil, fmt.Errorf("failed to load symbols: %w", err)
		}
	}

	imports := opts.Imports
	if imports == nil {
		imports = DefaultImports
	}
	if opts.Console != nil {
		if err := i.Use(consoleExports(opts.Console)); err != nil {
			return nil, fmt.Errorf("failed to load console symbols: %w", err)
		}
		imports = append(append([]string(nil), imports...), "console")
	}
	for _, pkg := range imports {
		if _, err := i.Eval(fmt.Sprintf("import %q", pkg)); err != nil {
			return nil, fmt.Errorf("import %s: %w", pkg, err)
		}
	}
	logging.Eval("yaegi interpreter ready (%d imports)", len(imports))
	return &Yaegi{i: i, timeout: opts.Timeout}, nil
}

func consoleExports(c ConsoleAPI) interp.Exports {
	return interp.Exports{
		"console/console": {
			"Log":   reflect.ValueOf(c.Log),
			"Warn":  reflect.ValueOf(c.Warn),
			"Error": reflect.ValueOf(c.Error),
			"Info":  reflect.ValueOf(c.Info),
			"Debug": reflect.ValueOf(c.Debug),
		},
	}
}

// Eval runs src. Statements without a value yield inspect.Undefined.
func (y *Yaegi) Eval(src string) (v any, err error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%v", r)
		}
	}()

	ctx := context.Background()
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	res, err := y.i.EvalWithContext(ctx, src)
	if err != nil {
		return nil, err
	}
	if !res.IsValid() || !res.CanInterface() {
		return inspect.Undefined, nil
	}
	return res.Interface(), nil
}
