package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the fastmcp-github-oauth package.
const TracerName = "github.com/liatrio/fastmcp-github-oauth"

// Span attribute keys for MCP and GitHub operations.
const (
	// SpanAttrTool is the MCP tool name.
	SpanAttrTool = "mcp.tool"

	// SpanAttrUserEmail is the user's email attribute (PII - use with care).
	SpanAttrUserEmail = "mcp.user.email"

	// SpanAttrUserDomain is the user's email domain (lower cardinality).
	SpanAttrUserDomain = "mcp.user.domain"

	// SpanAttrUserLogin is the user's GitHub login (PII - use with care).
	SpanAttrUserLogin = "mcp.user.login"

	// SpanAttrScopeCount is the number of OAuth scopes on the caller's token.
	SpanAttrScopeCount = "mcp.user.scope_count"

	// SpanAttrCacheHit indicates whether a claims cache hit occurred.
	SpanAttrCacheHit = "mcp.cache_hit"

	// SpanAttrOperation is the GitHub API operation (user, emails).
	SpanAttrOperation = "github.operation"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithUser adds user attributes with optional cardinality control.
// If includeIdentity is true, includes the full login and email; otherwise
// only the email domain.
func (b *SpanAttributeBuilder) WithUser(login, email string, includeIdentity bool) *SpanAttributeBuilder {
	if includeIdentity {
		b.attrs = append(b.attrs,
			attribute.String(SpanAttrUserLogin, login),
			attribute.String(SpanAttrUserEmail, email),
		)
	}
	b.attrs = append(b.attrs, attribute.String(SpanAttrUserDomain, ExtractUserDomain(email)))
	return b
}

// WithScopeCount adds the number of OAuth scopes on the caller's token.
func (b *SpanAttributeBuilder) WithScopeCount(scopes []string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrScopeCount, len(scopes)))
	return b
}

// WithCacheHit adds the claims cache hit indicator attribute.
func (b *SpanAttributeBuilder) WithCacheHit(hit bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrCacheHit, hit))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartToolSpan starts a span for an MCP tool invocation.
// Automatically adds tool name and sets appropriate span kind.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGitHubSpan starts a span for outbound GitHub API operations.
func StartGitHubSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOperation, operation))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "github."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
