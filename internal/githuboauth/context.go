package githuboauth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// claimsKey is the context key under which resolved GitHub claims are stored.
const claimsKey contextKey = "github_claims"

// ContextWithClaims returns a context carrying the resolved GitHub claims.
// The OAuth HTTP server injects claims after token validation so tool
// handlers can read them without talking to the GitHub API.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the GitHub claims from the context.
// Returns the claims and true if present, or nil and false if the request
// did not pass through the authenticated path.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
