// Package storage holds the durable key/value backends behind the local cache.
package storage

import "context"

// Store is a flat string key/value space. Keys are stored verbatim; the
// cache layer owns namespacing.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
