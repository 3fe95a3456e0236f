package offcache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	defaultSweepInterval = 6 * time.Hour
	defaultRetention     = 24 * time.Hour
)

type proxy struct {
	version string
	rootDoc string

	reg    *Registry
	fetch  Fetcher
	router *router
	log    Logger
	hooks  Hooks

	life    *lifecycle
	hub     *hub
	net     *netState
	janitor *janitor

	refreshSem chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func newProxy(opts Options) (*proxy, error) {
	if opts.Version == "" {
		return nil, fmt.Errorf("offcache: version is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("offcache: store is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("offcache: fetcher is required")
	}

	log := coalesce[Logger](opts.Logger, NopLogger{})
	hooks := coalesce[Hooks](opts.Hooks, NopHooks{})

	reg := NewRegistry(opts.Store, opts.Front, opts.Codec, log, hooks)

	apiPrefixes := opts.APIPrefixes
	if apiPrefixes == nil {
		apiPrefixes = []string{"/api/"}
	}
	suffixes := opts.AssetSuffixes
	if suffixes == nil {
		suffixes = DefaultAssetSuffixes
	}

	p := &proxy{
		version:    opts.Version,
		rootDoc:    coalesce[string](opts.RootDocument, "/"),
		reg:        reg,
		fetch:      opts.Fetcher,
		router:     newRouter(apiPrefixes, opts.APIHost, suffixes),
		log:        log,
		hooks:      hooks,
		hub:        newHub(coalesce[int](opts.SubscriberBuffer, 16)),
		refreshSem: make(chan struct{}, coalesce[int](opts.RefreshWorkers, 8)),
	}

	p.net = newNetState(func(at time.Time) {
		p.hub.broadcast(Message{Type: MsgBackOnline, Timestamp: at})
	})
	p.life = newLifecycle(opts.Version, opts.Precache, reg, opts.Fetcher, log, hooks)
	p.janitor = newJanitor(reg,
		coalesce[time.Duration](opts.SweepInterval, defaultSweepInterval),
		coalesce[time.Duration](opts.Retention, defaultRetention),
		log, hooks)

	return p, nil
}

func (p *proxy) Start(ctx context.Context) error {
	if err := p.life.Install(ctx); err != nil {
		return err
	}
	if err := p.life.Activate(ctx); err != nil {
		return err
	}
	p.janitor.start()
	return nil
}

func (p *proxy) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.janitor.stop()
		p.wg.Wait() // drain in-flight background refreshes
		p.hub.closeAll()
		err = p.reg.store.Close(ctx)
		if p.reg.front != nil {
			if cerr := p.reg.front.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

// Handle dispatches one intercepted request to its strategy. Until the
// proxy is active (install pending or failed), requests pass straight to
// the network — the previous generation, or no proxy at all, keeps serving.
func (p *proxy) Handle(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("offcache: request without URL")
	}
	if p.life.State() != StateActive {
		return p.fetch.Fetch(ctx, req)
	}

	switch p.router.classify(req) {
	case routePass:
		return p.fetch.Fetch(ctx, req)
	case routeStatic:
		return p.cacheFirst(ctx, req)
	case routeAPI:
		return p.apiCache(ctx, req)
	case routeNavigation:
		return p.navigationFallback(ctx, req)
	default:
		return p.networkFirst(ctx, req)
	}
}

func (p *proxy) Subscribe() *Subscriber { return p.hub.subscribe() }

func (p *proxy) Command(ctx context.Context, msg Message) (*Message, error) {
	switch msg.Type {
	case MsgClearCache:
		current := make(map[string]bool, 3)
		for _, n := range p.life.currentNames() {
			current[n] = true
		}
		for _, name := range msg.Partitions {
			// Registry.Delete treats unknown names as a no-op
			if err := p.reg.Delete(ctx, name); err != nil {
				p.log.Warn("clear cache: delete failed", Fields{"partition": name, "err": err})
				return nil, err
			}
			// a cleared current-generation partition stays registered (empty),
			// so entries written after the clear remain visible to MatchAny
			// and the janitor
			if current[name] {
				if err := p.reg.Open(ctx, name); err != nil {
					p.log.Warn("clear cache: reopen failed", Fields{"partition": name, "err": err})
					return nil, err
				}
			}
		}
		p.hub.broadcast(Message{Type: MsgCacheCleared, Timestamp: time.Now()})
		return nil, nil

	case MsgGetOfflineStatus:
		return &Message{Type: MsgOfflineStatus, IsOffline: !p.net.Online()}, nil

	default:
		return nil, fmt.Errorf("offcache: unsupported control message %q", msg.Type)
	}
}

func (p *proxy) SetOnline(online bool) { p.net.Set(online) }
func (p *proxy) Online() bool          { return p.net.Online() }
func (p *proxy) State() State          { return p.life.State() }
