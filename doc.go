// Package offcache implements a client-side caching and offline-resilience
// proxy. It sits between a foreground application and its backend, intercepts
// outgoing requests, and decides per request class how to satisfy them:
// cache-first for static assets, network-first for dynamic content,
// cache-first with background refresh for API data, and a cached-or-synthesized
// fallback for page navigations.
//
// Components:
//   - Registry: named, versioned cache partitions over a store.Store
//     (e.g. LevelDB, Redis), optionally fronted by a hot in-memory layer.
//   - Strategies: the four request-satisfaction algorithms, dispatched by a
//     pure URL/method classifier.
//   - Lifecycle: install (pre-populate the static partition from a manifest)
//     and activate (delete superseded generations, start serving).
//   - Control channel: CLEAR_CACHE / CACHE_CLEARED / GET_OFFLINE_STATUS /
//     OFFLINE_STATUS / BACK_ONLINE between the proxy and its subscribers.
//   - Janitor: periodic eviction of entries past the retention window.
//
// Keys:
//
//	part:<name>            - partition markers
//	ent:<name>:<req key>   - cached entries, req key = "<METHOD> <url>"
//
// Partition names embed a generation tag ("static-v7"); activation deletes
// every partition whose name does not belong to the current generation, so
// an upgrade cuts over atomically without serving mixed-generation assets.
package offcache
