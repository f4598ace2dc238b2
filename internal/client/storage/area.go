// Package storage provides the two persistence areas the token store
// chooses between: a durable area backed by SQLite that survives
// restarts, and a session-scoped in-memory area that dies with the
// process.
package storage

import "context"

// Area is a small key/value store. Get returns (nil, nil) for a missing
// key. Replace atomically drops every key and writes items in their
// place; readers never observe a partially replaced area.
type Area interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Replace(ctx context.Context, items map[string][]byte) error
}
