package offcache

// Hooks are lightweight callbacks for high-signal proxy events.
// Implementations MUST be cheap and non-blocking; the proxy calls them on
// hot paths. Wrap with hooks/async for fan-out to slower sinks.
type Hooks interface {
	// A partition write failed and was swallowed. Persistent failures here
	// usually mean quota exhaustion in the host store.
	CacheWriteFailed(partition, key string, err error)

	// A corrupt or undecodable entry was deleted on read.
	// reason ∈ {"corrupt", "decode"}
	SelfHeal(partition, key, reason string)

	// A background refresh attempt failed (best-effort; never retried).
	RefreshFailed(key string, err error)

	// One janitor pass over a partition finished.
	SweepDone(partition string, scanned, evicted int)

	// Pre-population of the static partition failed on the named asset.
	InstallFailed(asset string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheWriteFailed(string, string, error) {}
func (NopHooks) SelfHeal(string, string, string)        {}
func (NopHooks) RefreshFailed(string, error)            {}
func (NopHooks) SweepDone(string, int, int)             {}
func (NopHooks) InstallFailed(string, error)            {}
