// Package sloghooks implements offcache.Hooks on log/slog, with sampling
// for the events that can flood (write failures during quota exhaustion,
// refresh failures while flapping between online and offline).
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/offcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	WriteFailEvery   uint64
	RefreshFailEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	writeFailCtr   atomic.Uint64
	refreshFailCtr atomic.Uint64
}

var _ offcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheWriteFailed(partition, key string, err error) {
	if h.l == nil || !sample(h.opts.WriteFailEvery, &h.writeFailCtr) {
		return
	}
	h.l.Warn("offcache.cache_write_failed",
		"partition", partition,
		"key", key,
		"err", err)
}

func (h *Hooks) SelfHeal(partition, key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("offcache.self_heal",
		"partition", partition,
		"key", key,
		"reason", reason)
}

func (h *Hooks) RefreshFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.RefreshFailEvery, &h.refreshFailCtr) {
		return
	}
	h.l.Info("offcache.refresh_failed",
		"key", key,
		"err", err)
}

func (h *Hooks) SweepDone(partition string, scanned, evicted int) {
	if h.l == nil {
		return
	}
	h.l.Debug("offcache.sweep_done",
		"partition", partition,
		"scanned", scanned,
		"evicted", evicted)
}

func (h *Hooks) InstallFailed(asset string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("offcache.install_failed",
		"asset", asset,
		"err", err)
}
