// Package front defines the optional hot layer consulted before the durable
// partition store on reads. Fronts trade enumeration away for speed: they
// cannot list keys, so they can never back a partition on their own — the
// registry treats them as a disposable read-through cache and clears them
// wholesale whenever a partition is deleted.
package front

// Front is a non-enumerable in-memory byte cache. Implementations must be
// safe for concurrent use and byte-for-byte transparent. A miss here is
// never an error; the durable store is always the source of truth.
type Front interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)

	// Clear drops every entry. Called on partition deletion, since a front
	// cannot enumerate the keys of a single partition.
	Clear()

	Close() error
}
