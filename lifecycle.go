package offcache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
)

// State is the lifecycle state of the proxy.
type State int32

const (
	StateUninstalled State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninstalled:
		return "uninstalled"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// lifecycle owns the proxy's generation state: which partition names are
// current, and whether the proxy is allowed to serve from them yet.
type lifecycle struct {
	state atomic.Int32

	version  string
	precache []string
	reg      *Registry
	fetch    Fetcher
	log      Logger
	hooks    Hooks
}

func newLifecycle(version string, precache []string, reg *Registry, fetch Fetcher, log Logger, hooks Hooks) *lifecycle {
	return &lifecycle{
		version:  version,
		precache: precache,
		reg:      reg,
		fetch:    fetch,
		log:      log,
		hooks:    hooks,
	}
}

func (l *lifecycle) State() State { return State(l.state.Load()) }

// currentNames returns the partition names belonging to this generation.
func (l *lifecycle) currentNames() []string {
	return []string{
		partitionName(roleStatic, l.version),
		partitionName(roleDynamic, l.version),
		partitionName(roleAPI, l.version),
	}
}

// Install opens the static partition for the current generation and
// pre-populates it from the manifest. Any asset failure rolls the partial
// partition back and reverts to Uninstalled: the previous generation (or no
// proxy at all) keeps serving, and the application merely loses this
// generation's pre-population.
func (l *lifecycle) Install(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateUninstalled), int32(StateInstalling)) {
		return fmt.Errorf("offcache: install from state %s", l.State())
	}

	static := partitionName(roleStatic, l.version)
	if err := l.reg.Open(ctx, static); err != nil {
		l.state.Store(int32(StateUninstalled))
		return err
	}

	for _, asset := range l.precache {
		if err := l.precacheOne(ctx, static, asset); err != nil {
			l.hooks.InstallFailed(asset, err)
			l.log.Error("install failed, rolling back static partition",
				Fields{"version": l.version, "asset": asset, "err": err})
			// never leave a partial partition registered as current
			_ = l.reg.Delete(ctx, static)
			l.state.Store(int32(StateUninstalled))
			return fmt.Errorf("offcache: precache %q: %w", asset, err)
		}
	}

	l.state.Store(int32(StateInstalled))
	l.log.Info("installed", Fields{"version": l.version, "precached": len(l.precache)})
	return nil
}

func (l *lifecycle) precacheOne(ctx context.Context, partition, asset string) error {
	u, err := url.Parse(asset)
	if err != nil {
		return err
	}
	req := &Request{Method: http.MethodGet, URL: u}
	resp, err := l.fetch.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("status %d", resp.Status)
	}
	return l.reg.Put(ctx, partition, requestKey(req), resp)
}

// Activate deletes every partition that does not belong to the current
// generation, opens the dynamic and API partitions, and flips the proxy to
// Active so it starts intercepting traffic from already-connected clients.
func (l *lifecycle) Activate(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateInstalled), int32(StateActivating)) {
		return fmt.Errorf("offcache: activate from state %s", l.State())
	}

	current := make(map[string]bool, 3)
	for _, n := range l.currentNames() {
		current[n] = true
	}

	parts, err := l.reg.Partitions(ctx)
	if err != nil {
		l.state.Store(int32(StateInstalled))
		return err
	}
	for _, p := range parts {
		if current[p] {
			continue
		}
		if err := l.reg.Delete(ctx, p); err != nil {
			l.state.Store(int32(StateInstalled))
			return err
		}
		l.log.Info("superseded partition removed", Fields{"partition": p})
	}

	for _, n := range l.currentNames() {
		if err := l.reg.Open(ctx, n); err != nil {
			l.state.Store(int32(StateInstalled))
			return err
		}
	}

	l.state.Store(int32(StateActive))
	l.log.Info("activated", Fields{"version": l.version})
	return nil
}
