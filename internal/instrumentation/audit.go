package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures the context of a single MCP tool invocation for
// audit logging and metrics.
type ToolInvocation struct {
	// Tool is the name of the invoked tool.
	Tool string

	// StartTime is when the invocation began.
	StartTime time.Time

	// Duration is how long the invocation took. Set by Complete.
	Duration time.Duration

	// Success indicates whether the invocation succeeded. Set by Complete.
	Success bool

	// Error holds the error message for failed invocations.
	Error string

	// UserLogin is the GitHub login of the caller, if authenticated.
	UserLogin string

	// UserEmail is the resolved email of the caller, if authenticated.
	UserEmail string

	// Scopes are the OAuth scopes granted to the caller's token.
	Scopes []string

	// TraceID and SpanID link the audit record to the active trace.
	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation for the named tool with the
// start time set to now.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithUser records the caller's GitHub identity.
func (ti *ToolInvocation) WithUser(login, email string) *ToolInvocation {
	ti.UserLogin = login
	ti.UserEmail = email
	return ti
}

// WithScopes records the OAuth scopes granted to the caller's token.
func (ti *ToolInvocation) WithScopes(scopes []string) *ToolInvocation {
	ti.Scopes = scopes
	return ti
}

// WithSpanContext records the trace and span IDs from the active span, if any.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		ti.TraceID = spanCtx.TraceID().String()
		ti.SpanID = spanCtx.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished and records its duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess marks the invocation as successfully finished.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Status returns "success" or "error" for use as a metric label.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// UserDomain returns the cardinality-controlled domain of the caller's email.
func (ti *ToolInvocation) UserDomain() string {
	return ExtractUserDomain(ti.UserEmail)
}

// LogAttrs returns cardinality-controlled attributes suitable for regular
// operational logs. Full user identifiers are deliberately excluded.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("user_domain", ti.UserDomain()),
		slog.Int("scope_count", len(ti.Scopes)),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// LogAuditAttrs returns full-fidelity attributes for the audit log, including
// the caller's login and email.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("user", ti.UserEmail),
		slog.String("login", ti.UserLogin),
		slog.Any("scopes", ti.Scopes),
		slog.Duration("duration", ti.Duration),
		slog.String("status", ti.Status()),
	}

	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}

	return attrs
}

// AuditLogger writes audit records for completed tool invocations.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to
// slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogToolInvocation writes one audit record for a completed invocation.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || al.logger == nil {
		return
	}

	level := slog.LevelInfo
	if !ti.Success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(ctx, level, "tool invocation", ti.LogAuditAttrs()...)
}
