// Package store provides the key-value persistence layer for period blobs.
// A period is stored as one opaque JSON blob addressed by its id; the layer
// is eventually durable, not transactional.
package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates no blob is stored under the requested id.
var ErrNotFound = errors.New("store: period not found")

// Store persists one blob per period id. Put overwrites unconditionally
// (last write wins).
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, blob []byte) error
	List(ctx context.Context) ([]string, error)
}
