package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dronelink/dronelinkd/internal/auth"
	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/config"
	"github.com/dronelink/dronelinkd/internal/session"
)

// Outcomes recorded in Entry.Outcome.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Entry is one audit log line.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	User      string    `json:"user"`
	SessionID string    `json:"session"`
	CommandID string    `json:"command"`
	Kind      string    `json:"kind"`
	Channel   uint      `json:"channel"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs"`
}

// Logger appends one JSON line per finished command.
type Logger struct {
	mu     sync.Mutex
	path   string
	out    io.WriteCloser
	logger *slog.Logger
	now    func() time.Time
}

var _ session.Reporter = (*Logger)(nil)

// NewLogger opens a size-rotated audit log described by cfg.
func NewLogger(cfg config.AuditConfig, logger *slog.Logger) (*Logger, error) {
	if cfg.Path == "" {
		return nil, errors.New("audit path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return newLogger(cfg.Path, out, logger), nil
}

func newLogger(path string, out io.WriteCloser, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{path: path, out: out, logger: logger, now: time.Now}
}

// CommandFinished records r. The user is taken from the auth claims on ctx.
func (l *Logger) CommandFinished(ctx context.Context, r session.CommandReport) {
	l.writeEntry(Entry{
		Timestamp: l.now().UTC(),
		User:      auth.Subject(ctx),
		SessionID: r.SessionID,
		CommandID: r.CommandID,
		Kind:      string(r.Kind),
		Channel:   r.Channel,
		Outcome:   outcome(r),
		Code:      command.Code(r.Err),
		Error:     errorText(r.Err),
		LatencyMs: r.Duration.Milliseconds(),
	})
}

func outcome(r session.CommandReport) string {
	switch {
	case r.Err == nil:
		return OutcomeSuccess
	case r.Rejected:
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (l *Logger) writeEntry(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("Failed to marshal audit entry", "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		l.logger.Error("Failed to write audit entry", "error", err)
	}
}

// Path returns the active audit file.
func (l *Logger) Path() string {
	return l.path
}

// Rotate starts a new audit file when the output supports it.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.out.(interface{ Rotate() error }); ok {
		return r.Rotate()
	}
	return nil
}

// Close flushes and closes the audit file. Later entries are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}
