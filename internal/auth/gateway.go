package auth

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/cryptox"
	"github.com/pavelk2005/storegate/internal/kvstore"
	"github.com/pavelk2005/storegate/internal/logging"
	"github.com/pavelk2005/storegate/internal/remoteapi"
	"github.com/pavelk2005/storegate/internal/session"
)

// LoginState is the terminal state of a login request. Every call to Login
// resolves to exactly one of these; errors never cross the gateway boundary.
type LoginState int

const (
	StateSuccess LoginState = iota
	StateFailure
	StateBlocked
)

func (s LoginState) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// LoginResult carries the terminal state plus the navigation context the
// presentation layer needs.
type LoginResult struct {
	State   LoginState
	Message string

	// Populated on success.
	User       string
	Role       string
	APIMode    bool
	RedirectTo string
}

// GatewayOptions bundles the collaborators and tunables of the login flow.
type GatewayOptions struct {
	Directory          *Directory
	Lockout            *LockoutPolicy
	Remote             remoteapi.Client
	Vault              *session.Vault
	Store              kvstore.Store
	MaxAttempts        int
	MinAttemptInterval time.Duration
	DefaultLandingPath string
	Logger             logging.Logger
}

// Gateway orchestrates a login request: input validation, lockout check,
// attempt throttling, remote verification with local fallback, and session
// creation. Side effects are confined to the lockout policy and the vault.
type Gateway struct {
	directory          *Directory
	lockout            *LockoutPolicy
	remote             remoteapi.Client
	vault              *session.Vault
	store              kvstore.Store
	maxAttempts        int
	minAttemptInterval time.Duration
	defaultLanding     string
	log                logging.Logger
	now                func() time.Time
}

func NewGateway(opts GatewayOptions) *Gateway {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Gateway{
		directory:          opts.Directory,
		lockout:            opts.Lockout,
		remote:             opts.Remote,
		vault:              opts.Vault,
		store:              opts.Store,
		maxAttempts:        opts.MaxAttempts,
		minAttemptInterval: opts.MinAttemptInterval,
		defaultLanding:     opts.DefaultLandingPath,
		log:                log,
		now:                time.Now,
	}
}

// Login runs the full state machine. requestedPath is the protected path the
// user originally asked for; on success it becomes the redirect target
// (falling back to the default landing path).
func (g *Gateway) Login(ctx context.Context, username, password, requestedPath string) LoginResult {
	username = strings.ToLower(strings.TrimSpace(username))

	// 1. sanitize
	if !validUsername(username) || !validPassword(password) {
		return LoginResult{State: StateFailure, Message: "invalid characters in username or password"}
	}

	// 2. lockout check
	status, err := g.lockout.Status(ctx, username)
	if err != nil {
		// storage trouble must not lock the operator out
		g.log.Error(ctx, "lockout status read failed", "err", err)
		status = LockoutStatus{}
	}
	if status.Blocked {
		return LoginResult{State: StateBlocked, Message: blockedMessage(status.BlockedUntil, g.now())}
	}

	// 3. required fields
	if username == "" || strings.TrimSpace(password) == "" {
		return LoginResult{State: StateFailure, Message: "username and password are required"}
	}

	// 4. attempt throttle
	if g.throttled(ctx, username) {
		return LoginResult{State: StateFailure, Message: "too many attempts, wait a moment"}
	}

	// 5. remote attempt
	if g.remote.Online(ctx) {
		out := g.remote.VerifyCredentials(ctx, username, password)
		if out.Success {
			role := out.Role
			if role == "" {
				if cred, ok := g.directory.Find(username); ok {
					role = cred.Role
				}
			}
			return g.succeed(ctx, username, role, out.Token, out.ExpiresAt, true, requestedPath)
		}
		g.log.Debug(ctx, "remote verification failed, falling back", "reason", out.Reason)
	}

	// 6. local fallback
	if cred, ok := g.directory.Find(username); ok && cred.Verify(password) {
		return g.succeed(ctx, username, cred.Role, "", time.Time{}, false, requestedPath)
	}

	// 7. failure accounting
	attempts, blockedUntil, err := g.lockout.RecordFailure(ctx, username)
	if err != nil {
		g.log.Error(ctx, "failure accounting failed", "err", err)
		return LoginResult{State: StateFailure, Message: "credentials incorrect"}
	}
	if !blockedUntil.IsZero() {
		return LoginResult{State: StateBlocked, Message: blockedMessage(blockedUntil, g.now())}
	}
	return LoginResult{
		State:   StateFailure,
		Message: fmt.Sprintf("credentials incorrect, %d/%d attempts", attempts, g.maxAttempts),
	}
}

// Logout destroys the persisted session. Safe to call without one.
func (g *Gateway) Logout(ctx context.Context) error {
	return g.vault.Destroy(ctx)
}

func (g *Gateway) succeed(ctx context.Context, username, role, token string, tokenExpiry time.Time, apiMode bool, requestedPath string) LoginResult {
	if err := g.lockout.Clear(ctx, username); err != nil {
		g.log.Error(ctx, "lockout clear failed", "err", err)
	}

	_, err := g.vault.Create(ctx, session.CreateParams{
		User:              username,
		Role:              role,
		APIToken:          token,
		APIMode:           apiMode,
		APITokenExpiresAt: tokenExpiry,
	})
	if err != nil {
		g.log.Error(ctx, "session persist failed", "err", err)
		return LoginResult{State: StateFailure, Message: "session could not be saved"}
	}

	redirect := requestedPath
	if redirect == "" {
		redirect = g.defaultLanding
	}

	g.log.Info(ctx, "login succeeded", "user", username, "api_mode", apiMode)
	return LoginResult{
		State:      StateSuccess,
		Message:    "welcome",
		User:       username,
		Role:       role,
		APIMode:    apiMode,
		RedirectTo: redirect,
	}
}

// throttled enforces at most one attempt per username per interval via a
// single last-attempt stamp. Best effort: a failing store never blocks the
// attempt itself.
func (g *Gateway) throttled(ctx context.Context, username string) bool {
	key := common.RequestKeyPrefix + cryptox.Digest(username)
	now := g.now()

	raw, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Error(ctx, "throttle stamp read failed", "err", err)
		return false
	}

	if raw != nil {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			if now.Sub(time.UnixMilli(ms)) < g.minAttemptInterval {
				return true
			}
		}
	}

	if err := g.store.Set(ctx, key, []byte(strconv.FormatInt(now.UnixMilli(), 10))); err != nil {
		g.log.Error(ctx, "throttle stamp write failed", "err", err)
	}
	return false
}

func blockedMessage(until, now time.Time) string {
	minutes := int(math.Round(until.Sub(now).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many failed attempts, blocked for %d minutes", minutes)
}

func validUsername(username string) bool {
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func validPassword(password string) bool {
	for _, r := range password {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}
