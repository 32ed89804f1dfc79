// Package guard implements the protected-route check: every navigation into
// the admin area passes through Check, which decides Allowed or Denied from
// the persisted session and optionally re-validates the API token.
package guard

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/logging"
	"github.com/pavelk2005/storegate/internal/remoteapi"
	"github.com/pavelk2005/storegate/internal/session"
)

// Reason codes carried to the login entry point so it can explain the
// redirect and send the user back afterwards.
type Reason string

const (
	ReasonSessionExpired Reason = "session_expired"
	ReasonTokenRejected  Reason = "token_rejected"
	ReasonForbidden      Reason = "forbidden"
)

// Target describes the protected navigation being checked. RequiredRole is
// empty when any authenticated user may pass.
type Target struct {
	Path         string
	RequiredRole string
}

// Decision is the outcome of a guard check. When denied, RedirectTo points
// at the login entry with the original path and reason attached.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RedirectTo string

	// Session is the record the decision was made from; zero when denied
	// for a missing/invalid session.
	Session session.Record
}

type Guard struct {
	vault     *session.Vault
	remote    remoteapi.Client
	loginPath string
	log       logging.Logger
	now       func() time.Time
}

func NewGuard(vault *session.Vault, remote remoteapi.Client, loginPath string, log logging.Logger) *Guard {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Guard{vault: vault, remote: remote, loginPath: loginPath, log: log, now: time.Now}
}

// Check runs the access-control state machine for one navigation.
func (g *Guard) Check(ctx context.Context, target Target) Decision {
	rec, err := g.vault.Read(ctx)
	if err != nil {
		if errors.Is(err, common.ErrSessionCorrupted) {
			g.log.Warn(ctx, "discarding unreadable session blob")
		}
		// hygiene: clear both slots whatever the invalidity was
		if derr := g.vault.Destroy(ctx); derr != nil {
			g.log.Error(ctx, "session cleanup failed", "err", derr)
		}
		return g.deny(target, ReasonSessionExpired)
	}

	if rec.APIMode && rec.APIToken != "" {
		// an expired token needs no round trip to be rejected
		if !rec.APITokenExpiresAt.IsZero() && !rec.APITokenExpiresAt.After(g.now()) {
			g.log.Warn(ctx, "api token past its expiry, ending session", "user", rec.User)
			if err := g.vault.Destroy(ctx); err != nil {
				g.log.Error(ctx, "session cleanup failed", "err", err)
			}
			return g.deny(target, ReasonTokenRejected)
		}
		if !g.remote.VerifyToken(ctx, rec.APIToken) {
			g.log.Warn(ctx, "api token rejected, ending session", "user", rec.User)
			if err := g.vault.Destroy(ctx); err != nil {
				g.log.Error(ctx, "session cleanup failed", "err", err)
			}
			return g.deny(target, ReasonTokenRejected)
		}
	}

	if target.RequiredRole != "" && rec.Role != target.RequiredRole {
		// authenticated but not authorized; the session survives
		return g.deny(target, ReasonForbidden)
	}

	if g.vault.ShouldRenew(rec) {
		if renewed, err := g.vault.Renew(ctx, rec); err != nil {
			// renewal is best effort; the current session still stands
			g.log.Error(ctx, "session renewal failed", "err", err)
		} else {
			rec = renewed
		}
	}

	return Decision{Allowed: true, Session: rec}
}

func (g *Guard) deny(target Target, reason Reason) Decision {
	q := url.Values{}
	if target.Path != "" {
		q.Set("redirect", target.Path)
	}
	q.Set("reason", string(reason))

	return Decision{
		Reason:     reason,
		RedirectTo: g.loginPath + "?" + q.Encode(),
	}
}
