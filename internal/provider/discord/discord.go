// Package discord implements the OAuth 2.0 + PKCE flow against Discord.
// Discord issues plain OAuth 2.0 access tokens (no ID token), so identity
// requires follow-up API calls for the user profile and guild memberships.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/littlejohn/internal/metrics"
)

const (
	authorizePath = "/oauth2/authorize"
	tokenPath     = "/oauth2/token"
	userPath      = "/users/@me"
	guildsPath    = "/users/@me/guilds"
)

// Scope is the fixed scope requested on every authorization.
const Scope = "identify email guilds"

// Client is the Discord OAuth 2.0 client.
type Client struct {
	ClientID     string
	ClientSecret string
	// APIBase points at Discord's API root (https://discord.com/api/v10).
	// Overridable for tests/staging.
	APIBase string

	http *http.Client
}

// New creates a new Discord client.
func New(clientID, clientSecret, apiBase string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		APIBase:      strings.TrimRight(apiBase, "/"),
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the authorization redirect with a fixed scope and
// PKCE S256 challenge.
func (c *Client) AuthorizeURL(state, codeChallenge, redirectURI string) string {
	u, _ := url.Parse(c.APIBase + authorizePath)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", Scope)
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse is the response from Discord's token endpoint.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// ExchangeCode trades an authorization code (plus PKCE verifier) for an
// access token. Any non-success status is terminal: no retry, no backoff.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI, grantType string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code_verifier", codeVerifier)
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)
	form.Set("grant_type", grantType)
	form.Set("scope", Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", c.APIBase+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues("token").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("discord token exchange: status %d", resp.StatusCode)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

// User contains the profile fields from /users/@me.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Email         string `json:"email"`
	Verified      bool   `json:"verified"`
}

// FetchUser fetches the verified profile using the access token.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.APIBase+userPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues("user").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord api error: status %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

// Guild contains the membership fields from /users/@me/guilds.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// FetchGuilds fetches guild memberships. A non-success status means the
// membership data is unavailable, NOT an error: the caller degrades by
// omitting the claim. Transport failures are still errors.
func (c *Client) FetchGuilds(ctx context.Context, accessToken string) ([]Guild, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.APIBase+guildsPath, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues("guilds").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, false, nil
	}

	var guilds []Guild
	if err := json.NewDecoder(resp.Body).Decode(&guilds); err != nil {
		return nil, false, fmt.Errorf("failed to decode guilds: %w", err)
	}
	return guilds, true, nil
}
