package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/cryptox"
	"github.com/pavelk2005/storegate/internal/kvstore"
	"github.com/pavelk2005/storegate/internal/logging"
)

// LockoutStatus is the answer to "may this username attempt a login".
type LockoutStatus struct {
	Blocked      bool
	BlockedUntil time.Time
	Attempts     int
}

// LockoutPolicy keeps a per-username failed-attempt counter and a time-boxed
// block in the key/value store, keyed by a digest of the username.
//
// Concurrent failures for the same username from two clients are not
// serialized; last write wins. Accepted limitation for a single-operator
// admin tool.
type LockoutPolicy struct {
	store         kvstore.Store
	maxAttempts   int
	blockDuration time.Duration
	log           logging.Logger
	now           func() time.Time
}

func NewLockoutPolicy(store kvstore.Store, maxAttempts int, blockDuration time.Duration, log logging.Logger) *LockoutPolicy {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LockoutPolicy{
		store:         store,
		maxAttempts:   maxAttempts,
		blockDuration: blockDuration,
		log:           log,
		now:           time.Now,
	}
}

// Status reads the lockout record for username. An elapsed block is cleared
// as a side effect and reported as not blocked, attempts reset.
func (p *LockoutPolicy) Status(ctx context.Context, username string) (LockoutStatus, error) {
	attemptsKey, blockKey := p.keys(username)

	until, err := p.readTimestamp(ctx, blockKey)
	if err != nil {
		return LockoutStatus{}, err
	}

	if !until.IsZero() {
		if p.now().Before(until) {
			attempts, err := p.readCounter(ctx, attemptsKey)
			if err != nil {
				return LockoutStatus{}, err
			}
			return LockoutStatus{Blocked: true, BlockedUntil: until, Attempts: attempts}, nil
		}
		// block elapsed, clear lazily
		if err := p.store.DeleteMany(ctx, attemptsKey, blockKey); err != nil {
			return LockoutStatus{}, err
		}
		return LockoutStatus{}, nil
	}

	attempts, err := p.readCounter(ctx, attemptsKey)
	if err != nil {
		return LockoutStatus{}, err
	}
	return LockoutStatus{Attempts: attempts}, nil
}

// RecordFailure increments the failure counter for username and starts the
// block once the counter reaches the maximum. Returns the new counter value
// and, when the block was just set, its expiry; the caller picks the
// user-facing message from them.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, username string) (int, time.Time, error) {
	attemptsKey, blockKey := p.keys(username)

	attempts, err := p.readCounter(ctx, attemptsKey)
	if err != nil {
		return 0, time.Time{}, err
	}
	attempts++

	values := map[string][]byte{
		attemptsKey: []byte(strconv.Itoa(attempts)),
	}
	var until time.Time
	if attempts >= p.maxAttempts {
		until = p.now().Add(p.blockDuration)
		values[blockKey] = []byte(strconv.FormatInt(until.UnixMilli(), 10))
		p.log.Warn(ctx, "username blocked after repeated failures",
			"attempts", attempts, "until", until)
	}

	if err := p.store.SetMany(ctx, values); err != nil {
		return 0, time.Time{}, err
	}
	return attempts, until, nil
}

// Clear removes the counter and any block for username; called on a
// successful login.
func (p *LockoutPolicy) Clear(ctx context.Context, username string) error {
	attemptsKey, blockKey := p.keys(username)
	return p.store.DeleteMany(ctx, attemptsKey, blockKey)
}

func (p *LockoutPolicy) keys(username string) (attemptsKey, blockKey string) {
	digest := cryptox.Digest(username)
	return common.AttemptsKeyPrefix + digest, common.BlockKeyPrefix + digest
}

func (p *LockoutPolicy) readCounter(ctx context.Context, key string) (int, error) {
	raw, err := p.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		// unreadable counter, start over
		p.log.Warn(ctx, "corrupt attempt counter, resetting", "key", key)
		return 0, nil
	}
	return n, nil
}

func (p *LockoutPolicy) readTimestamp(ctx context.Context, key string) (time.Time, error) {
	raw, err := p.store.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if raw == nil {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		p.log.Warn(ctx, "corrupt block timestamp, ignoring", "key", key)
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}
