package githuboauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &Claims{
		Login:  "octocat",
		Email:  "octocat@example.com",
		Scopes: []string{"read:user", "user:email"},
	}

	ctx := ContextWithClaims(context.Background(), claims)

	got, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, claims, got)
}

func TestClaimsFromContext_Empty(t *testing.T) {
	got, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestClaimsFromContext_NilClaims(t *testing.T) {
	ctx := ContextWithClaims(context.Background(), nil)
	got, ok := ClaimsFromContext(ctx)
	assert.False(t, ok)
	assert.Nil(t, got)
}
