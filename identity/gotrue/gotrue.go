// Package gotrue implements identity.Provider against a GoTrue-compatible
// hosted authentication service (the auth API behind Supabase).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jmcleod/pinlock/identity"
)

// Config holds the configuration for the GoTrue client.
type Config struct {
	// URL is the auth API root, e.g. "https://<project>.supabase.co/auth/v1".
	URL string
	// APIKey is the project's public (anon) key, sent as the apikey header.
	APIKey string
	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
	// Now is the clock used for token expiry checks. Defaults to time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
}

// expiryLeeway refreshes tokens this long before they actually expire.
const expiryLeeway = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client is a stateful GoTrue session for a single user.
type Client struct {
	cfg Config

	mu      sync.Mutex
	session *tokenResponse
}

var _ identity.Provider = (*Client)(nil)

// NewClient creates a new GoTrue client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         userBody `json:"user"`
}

type userBody struct {
	ID      string            `json:"id"`
	Email   string            `json:"email"`
	Factors []identity.Factor `json:"factors"`
}

type enrollResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	TOTP struct {
		QRCode string `json:"qr_code"`
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	} `json:"totp"`
}

type challengeResponse struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

// aalClaims are the access-token claims GoTrue uses to report assurance.
type aalClaims struct {
	AAL string `json:"aal"`
	jwt.RegisteredClaims
}

// SignInWithPassword performs the password grant and stores the resulting session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.User, error) {
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "", &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("gotrue: token response without access_token")
	}

	c.setSession(&tok)
	return &identity.User{ID: tok.User.ID, Email: tok.User.Email}, nil
}

// SignOut revokes the session server-side and always drops it locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/logout", nil, sess.AccessToken, nil)
	if err != nil && isNoSession(err) {
		return nil
	}
	return err
}

// AssuranceLevel confirms the session with GET /user, then reads the current
// level from the access token's aal claim. Next is aal2 when the account has a
// verified factor.
func (c *Client) AssuranceLevel(ctx context.Context) (identity.AssuranceLevels, error) {
	user, token, err := c.currentUser(ctx)
	if err != nil {
		if isNoSession(err) {
			return identity.AssuranceLevels{}, nil
		}
		return identity.AssuranceLevels{}, err
	}

	var claims aalClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return identity.AssuranceLevels{}, fmt.Errorf("gotrue: parsing access token: %w", err)
	}

	levels := identity.AssuranceLevels{Current: identity.AAL(claims.AAL), Next: identity.AAL(claims.AAL)}
	if len(identity.VerifiedFactors(user.Factors)) > 0 {
		levels.Next = identity.AAL2
	}
	return levels, nil
}

// ListFactors returns every factor on the account, verified or not.
func (c *Client) ListFactors(ctx context.Context) ([]identity.Factor, error) {
	user, _, err := c.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return user.Factors, nil
}

// EnrollFactor creates a new unverified TOTP factor.
func (c *Client) EnrollFactor(ctx context.Context) (*identity.Enrollment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp enrollResponse
	err = c.do(ctx, http.MethodPost, "/factors", map[string]string{
		"factor_type": identity.FactorTypeTOTP,
	}, token, &resp)
	if err != nil {
		return nil, err
	}
	return &identity.Enrollment{
		FactorID: resp.ID,
		Secret:   resp.TOTP.Secret,
		URI:      resp.TOTP.URI,
		QRCode:   resp.TOTP.QRCode,
	}, nil
}

// CreateChallenge starts a verification against factorID.
func (c *Client) CreateChallenge(ctx context.Context, factorID string) (*identity.Challenge, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp challengeResponse
	err = c.do(ctx, http.MethodPost, "/factors/"+url.PathEscape(factorID)+"/challenge", nil, token, &resp)
	if err != nil {
		return nil, err
	}
	return &identity.Challenge{
		ID:        resp.ID,
		FactorID:  factorID,
		ExpiresAt: time.Unix(resp.ExpiresAt, 0),
	}, nil
}

// VerifyChallenge submits code for the challenge. On success GoTrue issues a
// new aal2 session which replaces the current one.
func (c *Client) VerifyChallenge(ctx context.Context, factorID, challengeID, code string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var tok tokenResponse
	err = c.do(ctx, http.MethodPost, "/factors/"+url.PathEscape(factorID)+"/verify", map[string]string{
		"challenge_id": challengeID,
		"code":         code,
	}, token, &tok)
	if err != nil {
		return err
	}
	if tok.AccessToken != "" {
		c.setSession(&tok)
	}
	return nil
}

func (c *Client) currentUser(ctx context.Context) (*userBody, string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, "", err
	}
	var user userBody
	if err := c.do(ctx, http.MethodGet, "/user", nil, token, &user); err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// accessToken returns the current access token, refreshing it first when it
// is about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return "", identity.ErrNoSession
	}
	if !c.expiring(sess) || sess.RefreshToken == "" {
		return sess.AccessToken, nil
	}

	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": sess.RefreshToken,
	}, "", &tok)
	if err != nil {
		return "", err
	}
	c.setSession(&tok)
	return tok.AccessToken, nil
}

func (c *Client) expiring(sess *tokenResponse) bool {
	if sess.ExpiresAt == 0 {
		return false
	}
	return c.cfg.Now().Add(expiryLeeway).After(time.Unix(sess.ExpiresAt, 0))
}

func (c *Client) do(ctx context.Context, method, path string, payload any, token string, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("gotrue: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("gotrue: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("gotrue: failed to read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("gotrue: response body exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gotrue: failed to parse response: %w", err)
	}
	return nil
}

func isNoSession(err error) bool {
	return errors.Is(err, identity.ErrNoSession)
}

// setSession stores tok, deriving expires_at from expires_in for servers
// that only send the latter.
func (c *Client) setSession(tok *tokenResponse) {
	if tok.ExpiresAt == 0 && tok.ExpiresIn > 0 {
		tok.ExpiresAt = c.cfg.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Unix()
	}
	c.mu.Lock()
	c.session = tok
	c.mu.Unlock()
}
