package offcache

import (
	"context"
	"strings"
	"time"

	"github.com/unkn0wn-root/offcache/codec"
	"github.com/unkn0wn-root/offcache/front"
	"github.com/unkn0wn-root/offcache/internal/wire"
	"github.com/unkn0wn-root/offcache/store"
)

// Partition roles. A partition name is "<role>-<generation>", e.g.
// "static-v7". At most one partition per role belongs to the current
// generation; everything else is deleted at activation.
const (
	roleStatic  = "static"
	roleDynamic = "dynamic"
	roleAPI     = "api"
)

func partitionName(role, version string) string { return role + "-" + version }

const (
	partPrefix = "part:"
	entPrefix  = "ent:"
)

// Registry manages named cache partitions over a durable store. It is the
// single choke point for partition mutation: no other component touches
// store keys directly.
//
// Error policy: read failures (store errors, corrupt frames, undecodable
// payloads) are downgraded to misses — corrupt entries are deleted on the
// way out (self-heal). Write failures are reported to hooks and returned,
// but callers are expected to swallow them: a cache write must never fail
// the request that triggered it.
type Registry struct {
	store store.Store
	front front.Front // optional hot layer; may be nil
	codec codec.Codec[Response]
	log   Logger
	hooks Hooks
}

func NewRegistry(s store.Store, f front.Front, c codec.Codec[Response], log Logger, hooks Hooks) *Registry {
	return &Registry{
		store: s,
		front: f,
		codec: coalesce[codec.Codec[Response]](c, codec.Msgpack[Response]{}),
		log:   coalesce[Logger](log, NopLogger{}),
		hooks: coalesce[Hooks](hooks, NopHooks{}),
	}
}

func entryKey(partition, key string) string { return entPrefix + partition + ":" + key }

// Open registers a partition, creating it if absent. Idempotent.
func (r *Registry) Open(ctx context.Context, name string) error {
	if err := r.store.Set(ctx, partPrefix+name, []byte{1}); err != nil {
		return &StorageError{Op: "set", Key: partPrefix + name, Err: err}
	}
	return nil
}

// Partitions lists every registered partition name.
func (r *Registry) Partitions(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, partPrefix)
	if err != nil {
		return nil, &StorageError{Op: "keys", Key: partPrefix, Err: err}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, partPrefix))
	}
	return out, nil
}

// Put snapshots resp into the partition under key. The stored copy gets a
// capture timestamp both in the frame header (for the janitor) and as a
// response header (so the foreground can see entry age).
func (r *Registry) Put(ctx context.Context, partition, key string, resp *Response) error {
	now := time.Now()

	snap := Response{
		Status: resp.Status,
		Header: cloneHeader(resp.Header),
		Body:   resp.Body,
	}
	snap.Header.Set(CapturedAtHeader, now.UTC().Format(time.RFC3339))
	snap.Header.Del("Content-Length")

	payload, err := r.codec.Encode(snap)
	if err != nil {
		r.hooks.CacheWriteFailed(partition, key, err)
		return err
	}

	sk := entryKey(partition, key)
	frame, err := wire.Encode(now, payload)
	if err != nil {
		r.hooks.CacheWriteFailed(partition, key, err)
		return err
	}
	if err := r.store.Set(ctx, sk, frame); err != nil {
		r.hooks.CacheWriteFailed(partition, key, err)
		r.log.Warn("partition write failed", Fields{"partition": partition, "key": key, "err": err})
		return &StorageError{Op: "set", Key: sk, Err: err}
	}
	if r.front != nil {
		r.front.Set(sk, frame)
	}
	return nil
}

// Match looks up key in one partition. Misses are (nil, zero, false);
// storage errors and corruption are downgraded to misses.
func (r *Registry) Match(ctx context.Context, partition, key string) (*Response, time.Time, bool) {
	sk := entryKey(partition, key)

	if r.front != nil {
		if raw, ok := r.front.Get(sk); ok {
			if resp, at, ok := r.decode(partition, key, raw); ok {
				return resp, at, true
			}
			r.front.Del(sk)
		}
	}

	raw, ok, err := r.store.Get(ctx, sk)
	if err != nil {
		// read failure is a miss, never fatal for the calling strategy
		r.log.Warn("partition read failed", Fields{"partition": partition, "key": key, "err": err})
		return nil, time.Time{}, false
	}
	if !ok {
		return nil, time.Time{}, false
	}
	resp, at, ok := r.decode(partition, key, raw)
	if !ok {
		_ = r.store.Del(ctx, sk) // self-heal corrupt
		return nil, time.Time{}, false
	}
	if r.front != nil {
		r.front.Set(sk, raw)
	}
	return resp, at, true
}

// MatchAny searches every registered partition for key, in no particular
// order. Used by fallback paths that do not care which partition holds a
// usable copy.
func (r *Registry) MatchAny(ctx context.Context, key string) (*Response, time.Time, bool) {
	parts, err := r.Partitions(ctx)
	if err != nil {
		r.log.Warn("partition list failed", Fields{"err": err})
		return nil, time.Time{}, false
	}
	for _, p := range parts {
		if resp, at, ok := r.Match(ctx, p, key); ok {
			return resp, at, true
		}
	}
	return nil, time.Time{}, false
}

// Delete removes a partition and all its entries. Deleting an unknown
// partition is a no-op. The front layer cannot enumerate, so it is cleared
// wholesale — deletes only happen at activation and on explicit clear
// commands, both rare.
func (r *Registry) Delete(ctx context.Context, name string) error {
	keys, err := r.store.Keys(ctx, entPrefix+name+":")
	if err != nil {
		return &StorageError{Op: "keys", Key: entPrefix + name, Err: err}
	}
	for _, k := range keys {
		if err := r.store.Del(ctx, k); err != nil {
			return &StorageError{Op: "del", Key: k, Err: err}
		}
	}
	if err := r.store.Del(ctx, partPrefix+name); err != nil {
		return &StorageError{Op: "del", Key: partPrefix + name, Err: err}
	}
	if r.front != nil {
		r.front.Clear()
	}
	r.log.Debug("partition deleted", Fields{"partition": name, "entries": len(keys)})
	return nil
}

// EntryKeys lists the logical entry keys of a partition.
func (r *Registry) EntryKeys(ctx context.Context, partition string) ([]string, error) {
	prefix := entPrefix + partition + ":"
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, &StorageError{Op: "keys", Key: prefix, Err: err}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out, nil
}

// Stamp reads only the capture timestamp of an entry. Corrupt frames are
// deleted and reported as absent.
func (r *Registry) Stamp(ctx context.Context, partition, key string) (time.Time, bool) {
	sk := entryKey(partition, key)
	raw, ok, err := r.store.Get(ctx, sk)
	if err != nil || !ok {
		return time.Time{}, false
	}
	at, err := wire.CapturedAt(raw)
	if err != nil {
		r.hooks.SelfHeal(partition, key, "corrupt")
		_ = r.store.Del(ctx, sk)
		return time.Time{}, false
	}
	return at, true
}

// Evict removes a single entry. Removing an absent entry is a no-op.
func (r *Registry) Evict(ctx context.Context, partition, key string) error {
	sk := entryKey(partition, key)
	if r.front != nil {
		r.front.Del(sk)
	}
	if err := r.store.Del(ctx, sk); err != nil {
		return &StorageError{Op: "del", Key: sk, Err: err}
	}
	return nil
}

func (r *Registry) decode(partition, key string, raw []byte) (*Response, time.Time, bool) {
	at, payload, err := wire.Decode(raw)
	if err != nil {
		r.hooks.SelfHeal(partition, key, "corrupt")
		return nil, time.Time{}, false
	}
	resp, err := r.codec.Decode(payload)
	if err != nil {
		r.hooks.SelfHeal(partition, key, "decode")
		return nil, time.Time{}, false
	}
	return &resp, at, true
}
