package evaluate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"devconsole/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Submitter accepts source text for evaluation.
type Submitter interface {
	Submit(src string)
}

// Watcher re-submits a source file whenever it is saved.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	target      Submitter
	debounceDur time.Duration
	pending     time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	runs        int
}

// NewWatcher creates a watcher for path. The directory is watched rather
// than the file so that editors that replace files on save still trigger.
func NewWatcher(path string, target Submitter) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		watcher:     w,
		path:        abs,
		target:      target,
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start submits the file once and then watches it. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	logging.Eval("watching %s", w.path)
	w.submit()

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.EvalError("watcher close: %v", err)
	}
}

// Runs reports how many times the file has been submitted.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.EvalError("watcher: %v", err)
		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounceDur
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if due {
				w.submit()
			}
		}
	}
}

func (w *Watcher) submit() {
	content, err := os.ReadFile(w.path)
	if err != nil {
		logging.EvalError("read %s: %v", w.path, err)
		return
	}
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	logging.EvalDebug("submitting %s (%d bytes)", w.path, len(content))
	w.target.Submit(string(content))
}
