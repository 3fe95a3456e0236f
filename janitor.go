package offcache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// janitor periodically evicts entries older than the retention window from
// every non-static partition. Advisory housekeeping only: a stale entry
// that survives a sweep keeps being served by cache-first paths until the
// next one, and re-deleting an already-deleted entry is a no-op, so an
// interrupted sweep needs no recovery.
type janitor struct {
	reg       *Registry
	interval  time.Duration
	retention time.Duration
	log       Logger
	hooks     Hooks

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func newJanitor(reg *Registry, interval, retention time.Duration, log Logger, hooks Hooks) *janitor {
	return &janitor{
		reg:       reg,
		interval:  interval,
		retention: retention,
		log:       log,
		hooks:     hooks,
	}
}

func (j *janitor) start() {
	if j.interval <= 0 || j.retention <= 0 {
		return
	}
	j.ticker = time.NewTicker(j.interval)
	j.stopCh = make(chan struct{})
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			select {
			case <-j.ticker.C:
				j.sweep(context.Background())
			case <-j.stopCh:
				return
			}
		}
	}()
}

func (j *janitor) stop() {
	j.once.Do(func() {
		if j.stopCh != nil {
			close(j.stopCh)
			j.ticker.Stop()
			j.wg.Wait()
		}
	})
}

// sweep runs one pass. Exposed separately from the ticker loop so tests
// can drive it deterministically.
func (j *janitor) sweep(ctx context.Context) {
	parts, err := j.reg.Partitions(ctx)
	if err != nil {
		j.log.Warn("sweep: partition list failed", Fields{"err": err})
		return
	}

	cutoff := time.Now().Add(-j.retention)
	for _, p := range parts {
		// the static partition holds the bootstrap assets; its lifetime is
		// the generation's, not the retention window's
		if strings.HasPrefix(p, roleStatic+"-") {
			continue
		}
		j.sweepPartition(ctx, p, cutoff)
	}
}

func (j *janitor) sweepPartition(ctx context.Context, partition string, cutoff time.Time) {
	keys, err := j.reg.EntryKeys(ctx, partition)
	if err != nil {
		j.log.Warn("sweep: enumerate failed", Fields{"partition": partition, "err": err})
		return
	}

	evicted := 0
	for _, k := range keys {
		select {
		case <-ctx.Done():
			return
		default:
		}
		at, ok := j.reg.Stamp(ctx, partition, k)
		if !ok {
			continue // vanished or self-healed; either way nothing to age
		}
		if at.Before(cutoff) {
			if err := j.reg.Evict(ctx, partition, k); err != nil {
				j.log.Warn("sweep: evict failed", Fields{"partition": partition, "key": k, "err": err})
				continue
			}
			evicted++
		}
	}

	j.hooks.SweepDone(partition, len(keys), evicted)
	if evicted > 0 {
		j.log.Debug("sweep done", Fields{"partition": partition, "scanned": len(keys), "evicted": evicted})
	}
}
