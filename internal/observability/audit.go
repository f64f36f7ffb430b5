package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventGraphBuild     AuditEventType = "composition.build"
	AuditEventLinearize      AuditEventType = "linearize"
	AuditEventRunStart       AuditEventType = "run.start"
	AuditEventRunComplete    AuditEventType = "run.complete"
	AuditEventRunError       AuditEventType = "run.error"
	AuditEventFixtureReplay  AuditEventType = "fixture.replay"
	AuditEventVerifyRun      AuditEventType = "verify.run"
	AuditEventSnapshotCreate AuditEventType = "snapshot.create"
	AuditEventSnapshotExport AuditEventType = "snapshot.export"
	AuditEventWorkflowStart  AuditEventType = "workflow.start"
	AuditEventWorkflowEnd    AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	Scenario    string                 `json:"scenario,omitempty"`
	UserID      string                 `json:"user_id,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger handles audit event logging.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	userID    string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
	UserID     string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		userID:    config.UserID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Fill in defaults
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}
	if event.UserID == "" {
		event.UserID = l.userID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogGraphBuild logs a composition graph build event.
func (l *AuditLogger) LogGraphBuild(ctx context.Context, scenario string, typeCount int, err error) {
	event := &AuditEvent{
		EventType: AuditEventGraphBuild,
		Scenario:  scenario,
		Success:   err == nil,
		Message:   fmt.Sprintf("Built composition graph for %s", scenario),
		Details: map[string]interface{}{
			"type_count": typeCount,
		},
	}
	if err != nil {
		event.Message = fmt.Sprintf("Composition graph for %s rejected", scenario)
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogLinearize logs a linearization event.
func (l *AuditLogger) LogLinearize(ctx context.Context, scenario, root string, order []string) {
	l.Log(&AuditEvent{
		EventType: AuditEventLinearize,
		Scenario:  scenario,
		Success:   true,
		Message:   fmt.Sprintf("Linearized %s", root),
		Details: map[string]interface{}{
			"root":      root,
			"order":     order,
			"order_len": len(order),
		},
	})
}

// LogRunStart logs the start of an instance initialization run.
func (l *AuditLogger) LogRunStart(ctx context.Context, scenario, workflowID string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventRunStart,
		Scenario:   scenario,
		WorkflowID: workflowID,
		Success:    true,
		Message:    fmt.Sprintf("Run started for %s", scenario),
	})
}

// LogRunComplete logs a completed initialization run.
func (l *AuditLogger) LogRunComplete(ctx context.Context, scenario, workflowID string, duration time.Duration, eventCount int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventRunComplete,
		Scenario:   scenario,
		WorkflowID: workflowID,
		Success:    true,
		Duration:   duration,
		Message:    fmt.Sprintf("Run completed for %s", scenario),
		Details: map[string]interface{}{
			"event_count": eventCount,
		},
	})
}

// LogRunError logs a failed initialization run.
func (l *AuditLogger) LogRunError(ctx context.Context, scenario, workflowID string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventRunError,
		Scenario:    scenario,
		WorkflowID:  workflowID,
		Success:     false,
		Message:     fmt.Sprintf("Run failed for %s", scenario),
		ErrorDetail: err.Error(),
	})
}

// LogFixtureReplay logs a fixture replay event.
func (l *AuditLogger) LogFixtureReplay(ctx context.Context, fixtureName string, passed bool, duration time.Duration, errorMsg string) {
	event := &AuditEvent{
		EventType: AuditEventFixtureReplay,
		Success:   passed,
		Duration:  duration,
		Message:   fmt.Sprintf("Fixture %s: %v", fixtureName, passed),
		Details: map[string]interface{}{
			"fixture_name": fixtureName,
		},
	}
	if errorMsg != "" {
		event.ErrorDetail = errorMsg
	}
	l.Log(event)
}

// LogVerifyRun logs a full verification run.
func (l *AuditLogger) LogVerifyRun(ctx context.Context, fixtureCount, passCount int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventVerifyRun,
		Success:   passCount == fixtureCount,
		Duration:  duration,
		Message:   fmt.Sprintf("Verification run: %d/%d passed", passCount, fixtureCount),
		Details: map[string]interface{}{
			"fixture_count": fixtureCount,
			"pass_count":    passCount,
			"fail_count":    fixtureCount - passCount,
		},
	})
}

// LogSnapshotCreate logs a snapshot capture event.
func (l *AuditLogger) LogSnapshotCreate(ctx context.Context, snapshotID string, docCount int, passRate float64) {
	l.Log(&AuditEvent{
		EventType: AuditEventSnapshotCreate,
		Success:   true,
		Message:   fmt.Sprintf("Captured snapshot %s: %d outcomes", snapshotID, docCount),
		Details: map[string]interface{}{
			"snapshot_id":    snapshotID,
			"document_count": docCount,
			"pass_rate":      passRate,
		},
	})
}

// LogSnapshotExport logs a snapshot export event.
func (l *AuditLogger) LogSnapshotExport(ctx context.Context, snapshotID, targetDir string, docCount int) {
	l.Log(&AuditEvent{
		EventType: AuditEventSnapshotExport,
		Success:   true,
		Message:   fmt.Sprintf("Exported snapshot %s to %s", snapshotID, targetDir),
		Details: map[string]interface{}{
			"snapshot_id":    snapshotID,
			"target_dir":     targetDir,
			"document_count": docCount,
		},
	})
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(ctx context.Context, workflowID string, scenarios []string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Success:    true,
		Message:    fmt.Sprintf("Workflow started: %d scenarios", len(scenarios)),
		Details: map[string]interface{}{
			"scenarios": scenarios,
		},
	})
}

// LogWorkflowEnd logs a workflow completion event.
func (l *AuditLogger) LogWorkflowEnd(ctx context.Context, workflowID string, success bool, duration time.Duration, passCount, failCount int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    success,
		Duration:   duration,
		Message:    fmt.Sprintf("Workflow completed: %d passed, %d failed", passCount, failCount),
		Details: map[string]interface{}{
			"pass_count": passCount,
			"fail_count": failCount,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		// Return a disabled logger if not initialized
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
