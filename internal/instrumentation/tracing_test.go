package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// Test constants for tracing tests
const (
	tracingTestEmail  = "jane@example.com"
	tracingTestDomain = "example.com"
	tracingTestLogin  = "jane"
	tracingTestTool   = "get_user_info"
)

func attrsToMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	t.Run("empty builder", func(t *testing.T) {
		builder := NewSpanAttributeBuilder()
		attrs := builder.Build()
		if len(attrs) != 0 {
			t.Errorf("Empty builder should return 0 attributes, got %d", len(attrs))
		}
	})

	t.Run("with tool", func(t *testing.T) {
		builder := NewSpanAttributeBuilder().WithTool(tracingTestTool)
		attrs := builder.Build()

		if len(attrs) != 1 {
			t.Fatalf("Expected 1 attribute, got %d", len(attrs))
		}
		if attrs[0].Key != SpanAttrTool {
			t.Errorf("Expected key %q, got %q", SpanAttrTool, attrs[0].Key)
		}
		if attrs[0].Value.AsString() != tracingTestTool {
			t.Errorf("Expected value %q, got %q", tracingTestTool, attrs[0].Value.AsString())
		}
	})

	t.Run("with user including identity", func(t *testing.T) {
		builder := NewSpanAttributeBuilder().WithUser(tracingTestLogin, tracingTestEmail, true)
		attrs := builder.Build()

		if len(attrs) != 3 {
			t.Fatalf("Expected 3 attributes, got %d", len(attrs))
		}

		attrMap := attrsToMap(attrs)
		if attrMap[SpanAttrUserEmail].AsString() != tracingTestEmail {
			t.Errorf("Expected email %q, got %q", tracingTestEmail, attrMap[SpanAttrUserEmail].AsString())
		}
		if attrMap[SpanAttrUserLogin].AsString() != tracingTestLogin {
			t.Errorf("Expected login %q, got %q", tracingTestLogin, attrMap[SpanAttrUserLogin].AsString())
		}
		if attrMap[SpanAttrUserDomain].AsString() != tracingTestDomain {
			t.Errorf("Expected domain %q, got %q", tracingTestDomain, attrMap[SpanAttrUserDomain].AsString())
		}
	})

	t.Run("with user excluding identity", func(t *testing.T) {
		builder := NewSpanAttributeBuilder().WithUser(tracingTestLogin, tracingTestEmail, false)
		attrs := builder.Build()

		if len(attrs) != 1 {
			t.Fatalf("Expected 1 attribute, got %d", len(attrs))
		}

		attrMap := attrsToMap(attrs)
		if _, ok := attrMap[SpanAttrUserEmail]; ok {
			t.Error("Should not include email when includeIdentity is false")
		}
		if attrMap[SpanAttrUserDomain].AsString() != tracingTestDomain {
			t.Errorf("Expected domain %q, got %q", tracingTestDomain, attrMap[SpanAttrUserDomain].AsString())
		}
	})

	t.Run("with scope count", func(t *testing.T) {
		builder := NewSpanAttributeBuilder().WithScopeCount([]string{"read:user", "user:email"})
		attrs := builder.Build()

		attrMap := attrsToMap(attrs)
		if attrMap[SpanAttrScopeCount].AsInt64() != 2 {
			t.Errorf("Expected scope_count 2, got %d", attrMap[SpanAttrScopeCount].AsInt64())
		}
	})

	t.Run("with cache hit", func(t *testing.T) {
		builder := NewSpanAttributeBuilder().WithCacheHit(true)
		attrs := builder.Build()

		attrMap := attrsToMap(attrs)
		if !attrMap[SpanAttrCacheHit].AsBool() {
			t.Error("Expected cache_hit to be true")
		}
	})

	t.Run("chained attributes", func(t *testing.T) {
		attrs := NewSpanAttributeBuilder().
			WithTool(tracingTestTool).
			WithUser(tracingTestLogin, tracingTestEmail, false).
			WithScopeCount([]string{"read:user"}).
			WithCacheHit(false).
			Build()

		if len(attrs) != 4 {
			t.Errorf("Expected 4 attributes, got %d", len(attrs))
		}
	})
}

// newTestTracer installs an in-memory span recorder and returns it.
func newTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	// Install as global so the span helpers pick it up, restore afterwards
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func TestStartToolSpan(t *testing.T) {
	recorder := newTestTracer(t)

	ctx, span := StartToolSpan(context.Background(), tracingTestTool)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "tool."+tracingTestTool {
		t.Errorf("Span name = %q, want %q", spans[0].Name(), "tool."+tracingTestTool)
	}

	attrMap := attrsToMap(spans[0].Attributes())
	if attrMap[SpanAttrTool].AsString() != tracingTestTool {
		t.Errorf("Expected tool attribute %q", tracingTestTool)
	}

	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("Expected a valid span context on the returned context")
	}
}

func TestStartGitHubSpan(t *testing.T) {
	recorder := newTestTracer(t)

	_, span := StartGitHubSpan(context.Background(), "user")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "github.user" {
		t.Errorf("Span name = %q, want %q", spans[0].Name(), "github.user")
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := newTestTracer(t)

	_, span := StartGitHubSpan(context.Background(), "user")
	SetSpanError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("Status = %v, want Error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("Expected a recorded error event")
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := newTestTracer(t)

	_, span := StartGitHubSpan(context.Background(), "user")
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("Status = %v, want Ok", spans[0].Status().Code)
	}
}
