// Package instrumentation provides OpenTelemetry instrumentation for the
// fastmcp-github-oauth server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, tool invocations, and
//     GitHub claims lookups
//   - Distributed tracing for request flows and GitHub API calls
//   - Prometheus metrics export via /metrics endpoint
//   - OTLP export support for modern observability platforms
//   - Structured audit logging for every tool invocation
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Tool Invocation Metrics:
//   - tool_invocations_total: Counter of MCP tool invocations by tool and status
//   - tool_invocation_duration_seconds: Histogram of tool invocation durations
//
// GitHub Claims Metrics:
//   - github_claims_lookups_total: Counter of claims lookups by result (hit, fetch, error)
//
// # Cardinality Considerations
//
// Metric labels are deliberately low-cardinality: tool names are a fixed set,
// and user identifiers never appear as labels. Regular log lines carry only
// the email domain; full identities go to the audit log.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: fastmcp-github-oauth)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "fastmcp-github-oauth",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	}, logger)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Record an HTTP request
//	provider.Metrics().RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
//
//	// Record a tool invocation
//	provider.Metrics().RecordToolInvocation(ctx, "get_user_info", true, time.Since(start))
package instrumentation
