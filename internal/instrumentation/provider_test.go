package instrumentation

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("provider should report disabled")
	}
	if provider.Metrics() != nil {
		t.Error("disabled provider should have nil metrics")
	}
	if provider.AuditLogger() == nil {
		t.Error("audit logger should be available even when disabled")
	}
	if provider.PrometheusHandler() != nil {
		t.Error("disabled provider should have no prometheus handler")
	}

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider should succeed, got %v", err)
	}
}

func TestNewProvider_Prometheus(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		ServiceVersion:  "0.0.1",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	if !provider.Enabled() {
		t.Error("provider should report enabled")
	}
	if provider.Metrics() == nil {
		t.Fatal("enabled provider should have metrics")
	}

	handler := provider.PrometheusHandler()
	if handler == nil {
		t.Fatal("prometheus exporter should provide a handler")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Errorf("metrics endpoint returned %d, want 200", rec.Code)
	}
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:         true,
		MetricsExporter: "bogus",
	}, nil)
	if err == nil {
		t.Error("expected error for unknown metrics exporter")
	}
}

func TestNewProvider_NilProviderAccessors(t *testing.T) {
	var p *Provider

	if p.Enabled() {
		t.Error("nil provider should report disabled")
	}
	if p.Metrics() != nil {
		t.Error("nil provider should have nil metrics")
	}
	if p.AuditLogger() != nil {
		t.Error("nil provider should have nil audit logger")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider shutdown should succeed, got %v", err)
	}
}
