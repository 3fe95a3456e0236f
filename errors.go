package offcache

import "fmt"

// TransportError wraps a network failure (unreachable origin, timeout).
// Strategies with a fallback recover from it; network-first surfaces it
// once both network and cache miss.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("offcache: fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StorageError wraps a partition store failure (quota, unavailable backend).
// Read failures are downgraded to cache misses; write failures are logged
// and swallowed so they never fail the request that triggered them.
type StorageError struct {
	Op  string // "get", "set", "del", "keys"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("offcache: storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
