// Package session implements the encrypted session vault: creation, reading,
// renewal and destruction of the single persisted session record.
//
// The vault is the sole writer of the session slots and never exposes the
// encryption key; every other component goes through Create/Read/Renew/
// Destroy.
package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/cryptox"
	"github.com/pavelk2005/storegate/internal/kvstore"
	"github.com/pavelk2005/storegate/internal/logging"
)

// CreateParams carries what the login flow knows about the authenticated
// user; the vault stamps the rest.
type CreateParams struct {
	User             string
	Role             string
	APIToken         string
	APIMode          bool
	APITokenExpiresAt time.Time
}

type Vault struct {
	store         kvstore.Store
	key           []byte
	ttl           time.Duration
	renewalWindow time.Duration
	log           logging.Logger
	now           func() time.Time
}

func NewVault(store kvstore.Store, key []byte, ttl, renewalWindow time.Duration, log logging.Logger) *Vault {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Vault{
		store:         store,
		key:           key,
		ttl:           ttl,
		renewalWindow: renewalWindow,
		log:           log,
		now:           time.Now,
	}
}

// WithClock replaces the vault's time source. Tests use it to walk sessions
// toward expiry.
func (v *Vault) WithClock(now func() time.Time) *Vault {
	v.now = now
	return v
}

// Create stamps and persists a fresh session record. A plaintext login
// timestamp is stored alongside for non-sensitive display; nothing trusts it.
func (v *Vault) Create(ctx context.Context, p CreateParams) (Record, error) {
	now := v.now()
	rec := Record{
		User:              p.User,
		Role:              p.Role,
		LoginTime:         now,
		ExpiresAt:         now.Add(v.ttl),
		APIToken:          p.APIToken,
		APIMode:           p.APIMode,
		APITokenExpiresAt: p.APITokenExpiresAt,
		SessionID:         uuid.NewString(),
	}

	if err := v.persist(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Read returns the stored session record. It fails with ErrNoSession when
// the slot is empty, ErrSessionCorrupted when the blob does not decrypt or
// parse, and ErrSessionExpired past expiry. Callers must treat every failure
// as "no session"; the distinction exists for logging only.
func (v *Vault) Read(ctx context.Context) (Record, error) {
	blob, err := v.store.Get(ctx, common.SessionKey)
	if err != nil {
		v.log.Error(ctx, "session slot read failed", "err", err)
		return Record{}, common.ErrNoSession
	}
	if blob == nil {
		return Record{}, common.ErrNoSession
	}

	var rec Record
	if err := cryptox.Open(string(blob), v.key, &rec); err != nil {
		v.log.Warn(ctx, "session blob corrupted, treating as absent")
		return Record{}, common.ErrSessionCorrupted
	}

	if rec.Expired(v.now()) {
		return Record{}, common.ErrSessionExpired
	}
	return rec, nil
}

// ShouldRenew reports whether the record's remaining life has fallen inside
// the renewal window.
func (v *Vault) ShouldRenew(rec Record) bool {
	return rec.Remaining(v.now()) < v.renewalWindow
}

// Renew persists a copy of rec with a full TTL from now. SessionID, user,
// role and token carry over unchanged.
func (v *Vault) Renew(ctx context.Context, rec Record) (Record, error) {
	now := v.now()
	rec.ExpiresAt = now.Add(v.ttl)
	rec.RenewedAt = now

	blob, err := cryptox.Seal(rec, v.key)
	if err != nil {
		return Record{}, err
	}
	if err := v.store.Set(ctx, common.SessionKey, []byte(blob)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Destroy clears the encrypted slot and the plaintext display timestamp.
func (v *Vault) Destroy(ctx context.Context) error {
	return v.store.DeleteMany(ctx, common.SessionKey, common.SessionStartKey)
}

func (v *Vault) persist(ctx context.Context, rec Record) error {
	blob, err := cryptox.Seal(rec, v.key)
	if err != nil {
		return err
	}
	return v.store.SetMany(ctx, map[string][]byte{
		common.SessionKey:      []byte(blob),
		common.SessionStartKey: []byte(strconv.FormatInt(rec.LoginTime.UnixMilli(), 10)),
	})
}
