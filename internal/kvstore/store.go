// Package kvstore defines the string-keyed persistent storage capability the
// authentication core is built on, together with a SQLite-backed
// implementation and an in-memory one for tests and embedders.
//
// Contract:
//   - Get returns (nil, nil) for a missing key; callers treat nil as absent.
//   - SetMany and DeleteMany are applied atomically where the backend
//     supports it.
//
// All methods must honor context cancellation/timeouts.
package kvstore

import "context"

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	SetMany(ctx context.Context, values map[string][]byte) error
	DeleteMany(ctx context.Context, keys ...string) error
}
