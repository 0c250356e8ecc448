// Package githuboauth implements the claims pipeline that turns an opaque
// GitHub access token into the user profile attributes exposed by the
// identity tools. The OAuth flow itself (authorization URL, code exchange,
// token validation) is handled by the mcp-oauth library's GitHub provider;
// this package covers what that provider does not: the full profile claim
// set and its caching.
//
// # Claims
//
// User attributes are resolved through the GitHub REST API:
//
//   - GET /user returns the profile (login, name, avatar, counters, ...)
//   - The X-OAuth-Scopes response header lists the scopes granted to the token
//   - GET /user/emails resolves the primary verified email when the profile
//     email is hidden (requires the user:email scope)
//
// Because every tool call would otherwise hit the GitHub API, claims are
// memoized in a TTL cache keyed by a token fingerprint, with singleflight
// deduplication for concurrent requests carrying the same token.
//
// # Context Plumbing
//
// ContextWithClaims and ClaimsFromContext carry resolved claims through the
// request context so tool handlers never talk to GitHub directly.
package githuboauth
