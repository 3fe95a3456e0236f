// Package asynchook decouples hook sinks from the proxy's hot paths: events
// are queued and delivered by worker goroutines, and dropped when the queue
// is full rather than blocking a request.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{RefreshFailEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	p, _ := offcache.New(offcache.Options{
//	    Version: "v7",
//	    Store:   store,
//	    Fetcher: fetcher,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/offcache"
)

type Hooks struct {
	inner offcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ offcache.Hooks = (*Hooks)(nil)

func New(inner offcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CacheWriteFailed(p, k string, err error) {
	h.try(func() { h.inner.CacheWriteFailed(p, k, err) })
}
func (h *Hooks) SelfHeal(p, k, r string) { h.try(func() { h.inner.SelfHeal(p, k, r) }) }
func (h *Hooks) RefreshFailed(k string, err error) {
	h.try(func() { h.inner.RefreshFailed(k, err) })
}
func (h *Hooks) SweepDone(p string, scanned, evicted int) {
	h.try(func() { h.inner.SweepDone(p, scanned, evicted) })
}
func (h *Hooks) InstallFailed(asset string, err error) {
	h.try(func() { h.inner.InstallFailed(asset, err) })
}
