package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds session-scoped logging fields
type LogContext struct {
	SessionID string    // Provisioning session identifier
	Provider  string    // Provider kind currently being handled
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context carrying lc
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a session
func NewLogContext(sessionID string) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithProvider returns a copy with the provider set
func (lc *LogContext) WithProvider(kind string) *LogContext {
	c := lc.Clone()
	if c == nil {
		c = &LogContext{StartTime: time.Now()}
	}
	c.Provider = kind
	return c
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}

// ProviderContext returns ctx with the provider field added to its LogContext.
func ProviderContext(ctx context.Context, kind string) context.Context {
	return WithContext(ctx, FromContext(ctx).WithProvider(kind))
}
