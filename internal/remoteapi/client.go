// Package remoteapi wraps the two backend endpoints the auth core consumes:
// credential verification and token verification, plus a liveness probe.
//
// Network failures never escape as errors from the verification calls; they
// are downgraded to soft failures so the caller can fall back to local
// verification.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pavelk2005/storegate/internal/cryptox"
	"github.com/pavelk2005/storegate/internal/logging"
)

const (
	healthPath = "/health"
	loginPath  = "/auth/login"
	verifyPath = "/auth/verify"
)

// Client defines the outbound calls used by the gateway and the route guard.
//
// Contract:
//   - Probe: liveness check; false on any non-2xx or network error.
//   - Online: cached Probe, re-issued when the cached result is stale.
//   - VerifyCredentials: remote login; always returns an outcome, never panics.
//   - VerifyToken: false on any non-2xx or network error.
type Client interface {
	Probe(ctx context.Context) bool
	Online(ctx context.Context) bool
	VerifyCredentials(ctx context.Context, username, password string) LoginOutcome
	VerifyToken(ctx context.Context, token string) bool
}

// HTTPClient is the concrete Client over net/http.
type HTTPClient struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	encryptionKey []byte
	log           logging.Logger

	probeMu       sync.Mutex
	probeInterval time.Duration
	probedAt      time.Time
	probedOnline  bool

	now func() time.Time
}

func NewHTTPClient(baseURL string, timeout, probeInterval time.Duration, encryptionKey []byte, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HTTPClient{
		baseURL:       baseURL,
		http:          &http.Client{},
		timeout:       timeout,
		encryptionKey: encryptionKey,
		probeInterval: probeInterval,
		log:           log,
		now:           time.Now,
	}
}

// credentialPayload is sealed with the static key before transmission.
// Confidentiality against casual inspection only; the key ships with the
// client.
type credentialPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Credentials string `json:"credentials"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
	// Unix milliseconds; zero when the server omits it.
	ExpiresAt int64 `json:"expiresAt"`
}

// Probe reports server liveness. Any non-2xx status or network error yields
// false.
func (c *HTTPClient) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "health probe failed", "err", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return is2xx(resp.StatusCode)
}

// Online returns the cached probe result, refreshing it when it is older
// than the probe interval. The first call always probes.
func (c *HTTPClient) Online(ctx context.Context) bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	now := c.now()
	if !c.probedAt.IsZero() && now.Sub(c.probedAt) < c.probeInterval {
		return c.probedOnline
	}

	c.probedOnline = c.Probe(ctx)
	c.probedAt = now
	return c.probedOnline
}

// VerifyCredentials posts the sealed credential payload to the login
// endpoint. Every failure mode (seal error, network error, non-2xx,
// malformed body, success=false) comes back as a soft failure.
func (c *HTTPClient) VerifyCredentials(ctx context.Context, username, password string) LoginOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	blob, err := cryptox.Seal(credentialPayload{Username: username, Password: password}, c.encryptionKey)
	if err != nil {
		return SoftFailure(fmt.Sprintf("seal credentials: %v", err))
	}

	body, err := json.Marshal(loginRequest{Credentials: blob})
	if err != nil {
		return SoftFailure(fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return SoftFailure(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "remote login unreachable", "err", err)
		return SoftFailure("network error")
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return SoftFailure(fmt.Sprintf("status %d", resp.StatusCode))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		c.log.Warn(ctx, "remote login returned malformed body", "err", err)
		return SoftFailure("malformed response")
	}

	if !lr.Success || lr.Token == "" {
		return SoftFailure("rejected")
	}

	return LoginOutcome{
		Success:   true,
		Token:     lr.Token,
		User:      lr.User.Username,
		Role:      lr.User.Role,
		ExpiresAt: c.resolveExpiry(lr),
	}
}

// resolveExpiry prefers the explicit expiresAt field and falls back to the
// token's exp claim (unverified parse; the value is a renewal hint, not an
// access decision).
func (c *HTTPClient) resolveExpiry(lr loginResponse) time.Time {
	if lr.ExpiresAt > 0 {
		return time.UnixMilli(lr.ExpiresAt)
	}
	return tokenExpiry(lr.Token)
}

// VerifyToken asks the backend whether a previously issued token is still
// accepted. Non-2xx and network errors both mean false.
func (c *HTTPClient) VerifyToken(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "token verification unreachable", "err", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return is2xx(resp.StatusCode)
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}
