package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a user-visible console action.
type AuditEventType string

const (
	AuditMount      AuditEventType = "console_mount"
	AuditClear      AuditEventType = "console_clear"
	AuditEvalSubmit AuditEventType = "eval_submit"
	AuditEvalResult AuditEventType = "eval_result"
	AuditEvalError  AuditEventType = "eval_error"
	AuditInvoke     AuditEventType = "invoke"
	AuditAttach     AuditEventType = "browser_attach"
)

// AuditEvent is one JSON line of the audit log.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"`
	EventType  AuditEventType `json:"event"`
	Category   string         `json:"cat,omitempty"`
	Target     string         `json:"target,omitempty"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger = &AuditLogger{}
)

// AuditLogger writes audit events to <logs>/<date>_audit.log.
type AuditLogger struct {
	category Category
}

// InitAudit opens the audit log. It is a no-op outside debug mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	return auditLogger
}

// AuditFor returns an audit logger that tags events with category.
func AuditFor(category Category) *AuditLogger {
	return &AuditLogger{category: category}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// Mount records the console switching to its mounted phase.
func (a *AuditLogger) Mount(replayed int) {
	a.Log(AuditEvent{EventType: AuditMount, Success: true, Fields: map[string]any{"replayed": replayed}})
}

// Clear records the visible log being cleared.
func (a *AuditLogger) Clear(dropped int) {
	a.Log(AuditEvent{EventType: AuditClear, Success: true, Fields: map[string]any{"dropped": dropped}})
}

// EvalSubmit records submitted source text.
func (a *AuditLogger) EvalSubmit(src string) {
	a.Log(AuditEvent{EventType: AuditEvalSubmit, Success: true, Target: src})
}

// EvalDone records the outcome of an evaluation.
func (a *AuditLogger) EvalDone(src string, duration time.Duration, err error) {
	e := AuditEvent{EventType: AuditEvalResult, Target: src, Success: err == nil, DurationMs: duration.Milliseconds()}
	if err != nil {
		e.EventType = AuditEvalError
		e.Error = err.Error()
	}
	a.Log(e)
}

// Invoke records a method invocation from the rendered tree.
func (a *AuditLogger) Invoke(objectID, prop string, err error) {
	e := AuditEvent{EventType: AuditInvoke, Target: objectID + "." + prop, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// Attach records the browser host attaching to a page.
func (a *AuditLogger) Attach(url string, err error) {
	e := AuditEvent{EventType: AuditAttach, Target: url, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}
