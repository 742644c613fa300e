// Package browser attaches the console to a page over the DevTools protocol:
// page console calls become console entries and prompt input can be
// evaluated in the page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"devconsole/internal/capture"
	"devconsole/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// ErrNotAttached is returned when an operation needs a page and none is open.
var ErrNotAttached = errors.New("no page attached")

// Sink receives page console events.
type Sink interface {
	Append(kind capture.Kind, args ...any)
	AppendMessage(kind capture.Kind, text string)
}

// Session describes the attached page.
type Session struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Config holds browser configuration.
type Config struct {
	// DebuggerURL connects to a running browser. Empty launches one.
	DebuggerURL string
	// Launch is the browser binary followed by extra flags.
	Launch   []string
	Headless bool
	// Timeout bounds connecting, navigation and one evaluation.
	Timeout time.Duration
	// EventThrottle drops an identical console event repeated inside it.
	EventThrottle time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:      true,
		Timeout:       30 * time.Second,
		EventThrottle: 100 * time.Millisecond,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// Host owns the browser connection and the one page the console follows.
type Host struct {
	cfg  Config
	sink Sink

	mu         sync.RWMutex
	browser    *rod.Browser
	launched   bool
	controlURL string
	page       *rod.Page
	session    Session
}

// NewHost creates a host that forwards page console events to sink.
func NewHost(cfg Config, sink Sink) *Host {
	return &Host{cfg: cfg, sink: sink}
}

// Start connects to an existing browser or launches a new one.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		if _, err := h.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection, reconnecting")
		h.browser = nil
		h.page = nil
		h.controlURL = ""
	}

	controlURL := h.cfg.DebuggerURL
	launched := false
	if controlURL == "" {
		url, err := h.launch()
		if err != nil {
			return err
		}
		controlURL = url
		launched = true
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	h.browser = b
	h.launched = launched
	h.controlURL = controlURL
	logging.Browser("connected to %s (launched=%v)", controlURL, launched)
	return nil
}

func (h *Host) launch() (string, error) {
	l := launcher.New().Headless(h.cfg.Headless)
	if len(h.cfg.Launch) > 0 {
		l = l.Bin(h.cfg.Launch[0])
		for _, raw := range h.cfg.Launch[1:] {
			name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
	}
	url, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	return url, nil
}

// ControlURL returns the DevTools websocket URL.
func (h *Host) ControlURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.controlURL
}

// Session returns the attached page's metadata.
func (h *Host) Session() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session, h.page != nil
}

// Open attaches to a page. An empty url follows the browser's first page,
// opening a blank one if there is none; otherwise a new page is opened and
// navigated to url.
func (h *Host) Open(ctx context.Context, url string) (*Session, error) {
	if err := h.Start(ctx); err != nil {
		return nil, err
	}
	h.mu.RLock()
	b := h.browser
	h.mu.RUnlock()

	var page *rod.Page
	if url == "" {
		pages, err := b.Pages()
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		page = pages.First()
	}
	if page == nil {
		p, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("create page: %w", err)
		}
		page = p
	}

	s := h.track(page, "attached")
	if url != "" {
		if err := page.Context(ctx).Timeout(h.cfg.timeout()).Navigate(url); err != nil {
			logging.BrowserError("navigate %s: %v", url, err)
			logging.Audit().Attach(url, err)
			return nil, fmt.Errorf("navigate %s: %w", url, err)
		}
		h.touch(url)
		s.URL = url
		s.Status = "active"
	}
	logging.Audit().Attach(s.URL, nil)
	return &s, nil
}

// AttachTarget follows an existing target by id.
func (h *Host) AttachTarget(ctx context.Context, targetID string) (*Session, error) {
	if err := h.Start(ctx); err != nil {
		return nil, err
	}
	h.mu.RLock()
	b := h.browser
	h.mu.RUnlock()

	page, err := b.PageFromTarget(proto.TargetTargetID(targetID))
	if err != nil {
		return nil, fmt.Errorf("attach to target %s: %w", targetID, err)
	}
	s := h.track(page, "attached")
	logging.Audit().Attach(targetID, nil)
	return &s, nil
}

func (h *Host) track(page *rod.Page, status string) Session {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.page = page
	h.session = Session{
		ID:         uuid.NewString(),
		TargetID:   string(page.TargetID),
		Status:     status,
		CreatedAt:  now,
		LastActive: now,
	}
	if info, err := page.Info(); err == nil {
		h.session.URL = info.URL
	}
	return h.session
}

func (h *Host) touch(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if url != "" {
		h.session.URL = url
	}
	h.session.LastActive = time.Now()
}

func (h *Host) currentPage() (*rod.Page, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.page == nil {
		return nil, ErrNotAttached
	}
	return h.page, nil
}

// Pump streams the page's console calls, uncaught exceptions and
// navigations into the sink until ctx is done.
func (h *Host) Pump(ctx context.Context) error {
	page, err := h.currentPage()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := (proto.RuntimeEnable{}).Call(p); err != nil {
		logging.BrowserError("enable runtime on %s: %v", page.TargetID, err)
		return fmt.Errorf("enable runtime: %w", err)
	}

	throttler := newEventThrottler(h.cfg.EventThrottle)
	wait := p.EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			kind, ok := kindForConsoleType(ev.Type)
			if !ok {
				return
			}
			args := consoleArgs(ev.Args)
			if !throttler.Allow(string(ev.Type) + ":" + describeArgs(ev.Args)) {
				return
			}
			h.touch("")
			h.sink.Append(kind, args...)
		},
		func(ev *proto.RuntimeExceptionThrown) {
			h.sink.AppendMessage(capture.KindError, "Uncaught "+exceptionMessage(ev.ExceptionDetails))
		},
		func(ev *proto.PageFrameNavigated) {
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			h.touch(ev.Frame.URL)
			logging.BrowserDebug("navigated to %s", ev.Frame.URL)
			h.sink.AppendMessage(capture.KindInfo, "Navigated to "+ev.Frame.URL)
		},
	)
	logging.Browser("pumping console events from %s", page.TargetID)
	wait()
	return nil
}

// Shutdown closes the browser if this host launched it.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.browser != nil && h.launched {
		if err = h.browser.Close(); err != nil {
			logging.BrowserError("close browser: %v", err)
		}
	}
	h.browser = nil
	h.page = nil
	h.controlURL = ""
	return err
}
