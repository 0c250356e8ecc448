package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	for _, code := range []int{
		http.StatusOK,
		http.StatusCreated,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusInternalServerError,
	} {
		rec := httptest.NewRecorder()
		rw := newResponseWriter(rec)

		rw.WriteHeader(code)

		assert.Equal(t, code, rw.statusCode)
		assert.True(t, rw.written)
	}
}

func TestResponseWriter_DefaultsTo200(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	_, err := rw.Write([]byte(`{"message": "pong"}`))
	assert.NoError(t, err)

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.True(t, rw.written)
}

func TestResponseWriter_OnlyFirstWriteHeaderCounts(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusBadRequest)

	assert.Equal(t, http.StatusAccepted, rw.statusCode)
}

func TestResponseWriter_Flush(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	// Must not panic even when the underlying writer has no Flush
	rw.Flush()
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	assert.Equal(t, rec, rw.Unwrap())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "mcp endpoint unchanged",
			input:    "/mcp",
			expected: "/mcp",
		},
		{
			name:     "health endpoint unchanged",
			input:    "/health",
			expected: "/health",
		},
		{
			name:     "probe endpoints unchanged",
			input:    "/readyz",
			expected: "/readyz",
		},
		{
			name:     "oauth callback unchanged",
			input:    "/auth/callback",
			expected: "/auth/callback",
		},
		{
			name:     "oauth token unchanged",
			input:    "/oauth/token",
			expected: "/oauth/token",
		},
		{
			name:     "well-known metadata unchanged",
			input:    "/.well-known/oauth-authorization-server",
			expected: "/.well-known/oauth-authorization-server",
		},
		{
			name:     "sse endpoints unchanged",
			input:    "/sse",
			expected: "/sse",
		},
		{
			name:     "mcp session id collapsed",
			input:    "/mcp/abc123xyz890def456",
			expected: "/mcp/:session",
		},
		{
			name:     "mcp session id with dashes collapsed",
			input:    "/mcp/session-id-12345",
			expected: "/mcp/:session",
		},
		{
			name:     "uuid collapsed",
			input:    "/api/resources/550e8400-e29b-41d4-a716-446655440000",
			expected: "/api/resources/:uuid",
		},
		{
			name:     "every uuid in the path collapsed",
			input:    "/api/550e8400-e29b-41d4-a716-446655440000/sub/660e8400-e29b-41d4-a716-446655440001",
			expected: "/api/:uuid/sub/:uuid",
		},
		{
			name:     "numeric id collapsed",
			input:    "/api/items/12345",
			expected: "/api/items/:id",
		},
		{
			name:     "numeric id mid-path collapsed",
			input:    "/api/items/12345/details",
			expected: "/api/items/:id/details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizePath(tt.input))
		})
	}
}

func TestHTTPMetrics_NilProviderPassesThrough(t *testing.T) {
	handler := HTTPMetrics(nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHTTPMetrics_PreservesResponse(t *testing.T) {
	expectedBody := `{"message":"pong","server":"FastMCP GitHub OAuth Example"}`

	handler := HTTPMetrics(nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(expectedBody))
		}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, expectedBody, rec.Body.String())
}

func TestHTTPMetrics_CapturesErrorStatus(t *testing.T) {
	handler := HTTPMetrics(nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
