// Package tools provides shared utilities for MCP tool implementations.
package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// WrapWithInstrumentation wraps a tool handler with tracing, metrics, and
// audit logging. The wrapper automatically captures:
//   - Tool invocation timing
//   - User identity from the GitHub claims in the request context
//   - Success/error status from the handler result
//   - OpenTelemetry trace context for correlation
//
// Instrumentation is best effort: when no provider is configured the handler
// runs unobserved, and a tool invocation is never failed by its telemetry.
func WrapWithInstrumentation(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		provider := sc.InstrumentationProvider()

		spanAttrs := instrumentation.NewSpanAttributeBuilder().WithTool(toolName)

		invocation := instrumentation.NewToolInvocation(toolName)
		if claims, ok := githuboauth.ClaimsFromContext(ctx); ok && claims != nil {
			invocation.WithUser(claims.Login, claims.Email).WithScopes(claims.Scopes)
			spanAttrs.WithUser(claims.Login, claims.Email, false).WithScopeCount(claims.Scopes)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName, spanAttrs.Build()...)
		defer span.End()

		invocation.WithSpanContext(ctx)

		start := time.Now()
		result, err := handler(ctx, request, sc)
		duration := time.Since(start)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			invocation.Error = "tool returned error"
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok && textContent.Text != "" {
					invocation.Error = textContent.Text
				}
			}
			instrumentation.SetSpanError(span, errors.New(invocation.Error))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		if metrics := provider.Metrics(); metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, invocation.Success, duration)
		}

		if auditLogger := provider.AuditLogger(); auditLogger != nil {
			auditLogger.LogToolInvocation(ctx, invocation)
		}

		sc.Logger().Debug("tool invocation completed",
			logging.Tool(toolName),
			logging.Status(invocation.Status()),
			slog.Duration(logging.KeyDuration, duration))

		return result, err
	}
}
