package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/kvstore"
	"github.com/pavelk2005/storegate/internal/remoteapi"
	"github.com/pavelk2005/storegate/internal/session"
)

var vaultKey = []byte("0123456789abcdef0123456789abcdef")

type fakeRemote struct {
	VerifyTokenRet  bool
	VerifyCalls     int
	LastVerifyToken string
}

func (f *fakeRemote) Probe(ctx context.Context) bool  { return true }
func (f *fakeRemote) Online(ctx context.Context) bool { return true }

func (f *fakeRemote) VerifyCredentials(ctx context.Context, username, password string) remoteapi.LoginOutcome {
	return remoteapi.SoftFailure("not used")
}

func (f *fakeRemote) VerifyToken(ctx context.Context, token string) bool {
	f.VerifyCalls++
	f.LastVerifyToken = token
	return f.VerifyTokenRet
}

type fixture struct {
	guard  *Guard
	vault  *session.Vault
	remote *fakeRemote
	store  *kvstore.InMemoryStore
	clock  *time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store := kvstore.NewInMemoryStore()
	remote := &fakeRemote{}

	clock := time.Now()
	vault := session.NewVault(store, vaultKey, 8*time.Hour, time.Hour, nil).
		WithClock(func() time.Time { return clock })

	g := NewGuard(vault, remote, "/login", nil)
	g.now = func() time.Time { return clock }

	return &fixture{
		guard:  g,
		vault:  vault,
		remote: remote,
		store:  store,
		clock:  &clock,
	}
}

func TestCheck_NoSessionDenied(t *testing.T) {
	f := setup(t)

	d := f.guard.Check(context.Background(), Target{Path: "/admin/orders"})

	require.False(t, d.Allowed)
	require.Equal(t, ReasonSessionExpired, d.Reason)
	require.Contains(t, d.RedirectTo, "/login?")
	require.Contains(t, d.RedirectTo, "redirect=%2Fadmin%2Forders")
	require.Contains(t, d.RedirectTo, "reason=session_expired")
}

func TestCheck_ValidSessionAllowed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{User: "admin", Role: "Supervisor"})
	require.NoError(t, err)

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.True(t, d.Allowed)
	require.Equal(t, "admin", d.Session.User)
	require.Zero(t, f.remote.VerifyCalls) // local-mode session, no token check
}

func TestCheck_ExpiredSessionDeniedAndCleaned(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{User: "admin", Role: "Supervisor"})
	require.NoError(t, err)

	*f.clock = f.clock.Add(8*time.Hour + time.Second)

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonSessionExpired, d.Reason)

	// the slot was destroyed, not just ignored
	raw, err := f.store.Get(ctx, common.SessionKey)
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestCheck_CorruptBlobDeniedNotPanic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, common.SessionKey, []byte("not-a-blob")))

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonSessionExpired, d.Reason)
}

func TestCheck_APITokenRevalidated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{
		User: "admin", Role: "Supervisor", APIToken: "tok-3", APIMode: true,
	})
	require.NoError(t, err)

	f.remote.VerifyTokenRet = true
	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.True(t, d.Allowed)
	require.Equal(t, "tok-3", f.remote.LastVerifyToken)
}

func TestCheck_ExpiredAPITokenDeniedWithoutRemoteCall(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{
		User: "admin", Role: "Supervisor", APIToken: "tok-3", APIMode: true,
		APITokenExpiresAt: f.clock.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	f.remote.VerifyTokenRet = true
	*f.clock = f.clock.Add(2*time.Hour + time.Second)

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonTokenRejected, d.Reason)
	require.Zero(t, f.remote.VerifyCalls)

	_, err = f.vault.Read(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestCheck_LiveTokenExpiryStillRevalidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{
		User: "admin", Role: "Supervisor", APIToken: "tok-3", APIMode: true,
		APITokenExpiresAt: f.clock.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	f.remote.VerifyTokenRet = true
	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.True(t, d.Allowed)
	require.Equal(t, 1, f.remote.VerifyCalls)
}

func TestCheck_RejectedTokenEndsSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{
		User: "admin", Role: "Supervisor", APIToken: "tok-3", APIMode: true,
	})
	require.NoError(t, err)

	f.remote.VerifyTokenRet = false
	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonTokenRejected, d.Reason)

	_, err = f.vault.Read(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestCheck_RoleMismatchForbiddenButSessionSurvives(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.vault.Create(ctx, session.CreateParams{User: "viewer", Role: "Viewer"})
	require.NoError(t, err)

	d := f.guard.Check(ctx, Target{Path: "/admin/products/new", RequiredRole: "Supervisor"})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonForbidden, d.Reason)
	require.Contains(t, d.RedirectTo, "reason=forbidden")

	_, err = f.vault.Read(ctx)
	require.NoError(t, err)
}

func TestCheck_RenewsInsideWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.vault.Create(ctx, session.CreateParams{User: "admin", Role: "Supervisor"})
	require.NoError(t, err)

	// 30 minutes of life left
	*f.clock = f.clock.Add(8*time.Hour - 30*time.Minute)

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.True(t, d.Allowed)

	rec, err := f.vault.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, created.SessionID, rec.SessionID)
	require.Equal(t, f.clock.Add(8*time.Hour).UnixMilli(), rec.ExpiresAt.UnixMilli())
	require.Equal(t, f.clock.UnixMilli(), rec.RenewedAt.UnixMilli())
}

func TestCheck_NoRenewalOutsideWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.vault.Create(ctx, session.CreateParams{User: "admin", Role: "Supervisor"})
	require.NoError(t, err)

	*f.clock = f.clock.Add(time.Hour)

	d := f.guard.Check(ctx, Target{Path: "/admin"})
	require.True(t, d.Allowed)

	rec, err := f.vault.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, created.ExpiresAt.UnixMilli(), rec.ExpiresAt.UnixMilli())
	require.True(t, rec.RenewedAt.IsZero())
}
