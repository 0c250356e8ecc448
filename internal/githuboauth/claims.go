package githuboauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
)

// DefaultAPIBaseURL is the GitHub REST API base URL.
const DefaultAPIBaseURL = "https://api.github.com"

// apiVersion pins the GitHub REST API version for stable response shapes.
const apiVersion = "2022-11-28"

// maxResponseBytes caps API response bodies to guard against oversized payloads.
const maxResponseBytes = 1 << 20

// Claims holds the user attributes resolved from the GitHub API for an
// access token. The JSON field names match the GitHub /user response so the
// profile portion unmarshals directly.
type Claims struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	Bio         string `json:"bio"`
	Blog        string `json:"blog"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`

	// Scopes are the scopes granted to the token, reported by GitHub in the
	// X-OAuth-Scopes response header rather than the response body.
	Scopes []string `json:"scopes"`
}

// userEmail is a single entry from the GitHub /user/emails response.
type userEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Client fetches user claims from the GitHub REST API.
type Client struct {
	apiBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a GitHub API client. An empty apiBaseURL selects the
// public GitHub API; tests point it at a local httptest server.
func NewClient(apiBaseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchClaims resolves the full claim set for an access token.
// It calls GET /user for the profile and granted scopes, and falls back to
// GET /user/emails when the profile email is hidden. Users who keep their
// email private and deny the user:email scope get the stable noreply address
// so downstream consumers always see a non-empty email.
func (c *Client) FetchClaims(ctx context.Context, accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is empty")
	}

	claims := &Claims{}
	scopes, err := c.getJSON(ctx, "user", "/user", accessToken, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	claims.Scopes = scopes

	if claims.Email == "" {
		email, err := c.fetchPrimaryEmail(ctx, accessToken)
		if err != nil {
			c.logger.Debug("could not resolve primary email, using noreply fallback",
				logging.UserHash(claims.Login),
				logging.SanitizedErr(err))
		}
		if email == "" {
			email = claims.Login + "@users.noreply.github.com"
		}
		claims.Email = email
	}

	return claims, nil
}

// fetchPrimaryEmail returns the user's primary verified email address.
// Requires the user:email scope; returns empty string when no verified
// primary address exists.
func (c *Client) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []userEmail
	if _, err := c.getJSON(ctx, "emails", "/user/emails", accessToken, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	// No primary entry, accept any verified address.
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

// getJSON performs an authenticated GET against the GitHub API and decodes
// the response body into out. It returns the granted scopes parsed from the
// X-OAuth-Scopes response header. Each call is traced as a github.<operation>
// client span.
func (c *Client) getJSON(ctx context.Context, operation, path, accessToken string, out any) ([]string, error) {
	ctx, span := instrumentation.StartGitHubSpan(ctx, operation)
	defer span.End()

	scopes, err := c.doGetJSON(ctx, path, accessToken, out)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return scopes, nil
}

func (c *Client) doGetJSON(ctx context.Context, path, accessToken string, out any) ([]string, error) {
	c.logger.Debug("github api request",
		logging.Endpoint(path),
		slog.String("token", logging.SanitizeToken(accessToken)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode.
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("github rejected token for %s: %s", path, resp.Status)
	default:
		return nil, fmt.Errorf("unexpected status from %s: %s", path, resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return parseScopesHeader(resp.Header.Get("X-OAuth-Scopes")), nil
}

// parseScopesHeader splits the comma-separated X-OAuth-Scopes header value.
// GitHub reports an empty header for tokens without scopes.
func parseScopesHeader(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
