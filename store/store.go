// Package store defines the durable byte-store abstraction backing cache
// partitions.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key. If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so the bytes returned by Get are identical to the bytes given to
// Set.
//
// The keyspaces "part:" and "ent:" are owned by the registry. External code
// MUST NOT write values under these prefixes; foreign writes may be treated
// as corruption by strict frame validation and deleted.
package store

import "context"

// Store is a minimal byte store with prefix enumeration. Enumeration is what
// lets the registry list and delete whole partitions and the janitor age
// entries, so it is part of the contract (non-enumerable caches belong in
// the front layer instead). Must be safe for concurrent use; single-key
// writes are atomic, concurrent writers to the same key race and the last
// write wins.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes a key. Deleting an absent key is a no-op, not an error.
	Del(ctx context.Context, key string) error

	// Keys returns every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
