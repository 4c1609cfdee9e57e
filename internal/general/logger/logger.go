package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// ----- Public wire types -----

// ErrorObject is emitted only for error logs.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// LogEntry is the single-line JSON format written to stdout. Lines carry the
// ride and join-request identifiers whenever the context has them, so one
// booking flow can be traced across the booking, expiry, and notify services.
type LogEntry struct {
	Timestamp string       `json:"timestamp"`                 // ISO 8601 format timestamp
	Level     string       `json:"level"`                     // DEBUG | INFO | ERROR
	Service   string       `json:"service"`                   // service name (e.g., booking-service)
	Action    string       `json:"action"`                    // event name (e.g., request_submitted)
	Message   string       `json:"message"`                   // human-readable description
	Hostname  string       `json:"hostname"`                  // service hostname
	RequestID string       `json:"request_id,omitempty"`      // correlation ID for tracing
	RideID    string       `json:"ride_id,omitempty"`         // ride identifier (when applicable)
	JoinReqID string       `json:"join_request_id,omitempty"` // join request identifier (when applicable)
	Details   any          `json:"details,omitempty"`         // optional: extra fields (map or struct)
	Error     *ErrorObject `json:"error,omitempty"`           // optional: error details
}

// ----- Logger -----

type Logger struct {
	service  string
	hostname string
	mu       sync.Mutex
	out      io.Writer
}

// New creates a structured logger for the given service, writing to stdout.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter creates a logger writing to out. Tests pass a buffer here.
func NewWithWriter(service string, out io.Writer) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}

	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}

	return &Logger{service: service, hostname: hn, out: out}
}

// emit marshals and writes a single JSON line.
func (l *Logger) emit(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(e)
	if err == nil {
		fmt.Fprintln(l.out, string(b))
		return
	}

	// retry once without Details (common source of marshal errors)
	e.Details = nil
	if b, err := json.Marshal(e); err == nil {
		fmt.Fprintln(l.out, string(b))
		return
	}

	// final structured fallback to keep logs JSON-shaped
	fallback := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     "ERROR",
		"service":   l.service,
		"action":    "logger_marshal_failed",
		"message":   "failed to encode log entry",
		"hostname":  l.hostname,
		"error": ErrorObject{
			Msg:   strings.TrimSpace(err.Error()),
			Stack: string(debug.Stack()),
		},
	}

	if fb, err := json.Marshal(fallback); err == nil {
		fmt.Fprintln(l.out, string(fb))
	} else {
		// absolute last resort (very unlikely)
		fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
	}
}

// entry fills the fields shared by every level.
func (l *Logger) entry(ctx context.Context, level, action, msg string) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Service:   l.service,
		Action:    safeAction(action),
		Message:   strings.TrimSpace(msg),
		Hostname:  l.hostname,
		RequestID: ctxString(ctx, ctxKeyRequestID),
		RideID:    ctxString(ctx, ctxKeyRideID),
		JoinReqID: ctxString(ctx, ctxKeyJoinReqID),
	}
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	e := l.entry(ctx, "DEBUG", action, msg)
	e.Details = details
	l.emit(e)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	e := l.entry(ctx, "INFO", action, msg)
	e.Details = details
	l.emit(e)
}

// Error writes an ERROR line and attaches an error stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}

	e := l.entry(ctx, "ERROR", action, msg)
	e.Details = details
	e.Error = &ErrorObject{
		Msg:   strings.TrimSpace(err.Error()),
		Stack: string(debug.Stack()),
	}
	l.emit(e)
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "carpool_request_id"
	ctxKeyRideID    ctxKey = "carpool_ride_id"
	ctxKeyJoinReqID ctxKey = "carpool_join_request_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	return withCtxString(ctx, ctxKeyRequestID, reqID)
}

// WithRideID returns a new context carrying ride_id.
func (l *Logger) WithRideID(ctx context.Context, rideID string) context.Context {
	return withCtxString(ctx, ctxKeyRideID, rideID)
}

// WithJoinRequestID returns a new context carrying join_request_id.
func (l *Logger) WithJoinRequestID(ctx context.Context, requestID string) context.Context {
	return withCtxString(ctx, ctxKeyJoinReqID, requestID)
}

func withCtxString(ctx context.Context, key ctxKey, val string) context.Context {
	if strings.TrimSpace(val) == "" {
		return ctx
	}
	return context.WithValue(ctx, key, val)
}

func ctxString(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
