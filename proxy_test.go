package offcache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/offcache/store"
)

// fakeFetcher is a scripted network. Responses are keyed by request URI;
// unknown URIs 404. A global or per-path error simulates unreachability.
type fakeFetcher struct {
	mu        sync.Mutex
	resps     map[string]*Response
	err       error
	pathErrs  map[string]error
	callCount map[string]int
}

var _ Fetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		resps:     make(map[string]*Response),
		pathErrs:  make(map[string]error),
		callCount: make(map[string]int),
	}
}

func (f *fakeFetcher) serve(uri string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resps[uri] = &Response{Status: status, Header: make(http.Header), Body: []byte(body)}
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) failPath(uri string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pathErrs[uri] = err
}

func (f *fakeFetcher) calls(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount[uri]
}

func (f *fakeFetcher) Fetch(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri := req.URL.RequestURI()
	f.callCount[uri]++
	if f.err != nil {
		return nil, &TransportError{URL: uri, Err: f.err}
	}
	if err, ok := f.pathErrs[uri]; ok {
		return nil, &TransportError{URL: uri, Err: err}
	}
	if r, ok := f.resps[uri]; ok {
		body := make([]byte, len(r.Body))
		copy(body, r.Body)
		return &Response{Status: r.Status, Header: cloneHeader(r.Header), Body: body}, nil
	}
	return &Response{Status: http.StatusNotFound, Header: make(http.Header), Body: []byte("not found")}, nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func getReq(t *testing.T, raw string) *Request {
	t.Helper()
	return &Request{Method: http.MethodGet, URL: mustURL(t, raw)}
}

func newTestProxy(t *testing.T, ff *fakeFetcher, optsOpt func(*Options)) *proxy {
	t.Helper()
	opts := Options{
		Version: "v1",
		Store:   store.NewMemory(),
		Fetcher: ff,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })
	impl, ok := p.(*proxy)
	if !ok {
		t.Fatalf("unexpected concrete type for Proxy")
	}
	return impl
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// ==============================
// Cache-first (static assets)
// ==============================

// Once a static asset has been fetched successfully, every subsequent
// request for the same URL is served without any network call.
func TestCacheFirstServesFromCache(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/app.js", 200, "console.log('depot')")
	p := newTestProxy(t, ff, nil)

	for i := 0; i < 3; i++ {
		resp, err := p.Handle(ctx, getReq(t, "/app.js"))
		if err != nil {
			t.Fatalf("Handle #%d: %v", i, err)
		}
		if resp.Status != 200 || string(resp.Body) != "console.log('depot')" {
			t.Fatalf("Handle #%d: status=%d body=%q", i, resp.Status, resp.Body)
		}
	}
	if got := ff.calls("/app.js"); got != 1 {
		t.Fatalf("expected exactly 1 network call, got %d", got)
	}

	// cached copies carry a capture timestamp
	resp, _ := p.Handle(ctx, getReq(t, "/app.js"))
	if resp.Header.Get(CapturedAtHeader) == "" {
		t.Fatalf("cached response missing %s header", CapturedAtHeader)
	}
	if resp.Header.Get(DispositionHeader) != "hit" {
		t.Fatalf("expected hit disposition, got %q", resp.Header.Get(DispositionHeader))
	}
}

// A failed static fetch propagates and caches nothing.
func TestCacheFirstPropagatesNetworkFailure(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.failPath("/logo.png", errors.New("unreachable"))
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/logo.png")); err == nil {
		t.Fatalf("expected transport error to propagate")
	}
	var te *TransportError
	if _, err := p.Handle(ctx, getReq(t, "/logo.png")); !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
}

// ==============================
// Non-GET bypass
// ==============================

// Non-GET requests always bypass caching entirely: no entry is created
// or read.
func TestNonGETBypassesCache(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/api/inventory", 200, `{"tanks":[]}`)
	p := newTestProxy(t, ff, nil)

	post := &Request{Method: http.MethodPost, URL: mustURL(t, "/api/inventory")}
	if _, err := p.Handle(ctx, post); err != nil {
		t.Fatalf("Handle POST: %v", err)
	}
	if _, err := p.Handle(ctx, post); err != nil {
		t.Fatalf("Handle POST: %v", err)
	}
	if got := ff.calls("/api/inventory"); got != 2 {
		t.Fatalf("expected 2 network calls for POSTs, got %d", got)
	}

	// no cache entry exists under the POST key
	key := requestKey(post)
	if _, _, ok := p.reg.MatchAny(ctx, key); ok {
		t.Fatalf("POST created a cache entry")
	}
}

// ==============================
// API strategy (cache-first with background refresh)
// ==============================

// First API request with no prior cache and network reachable: network
// call made, stored, returned unmodified.
func TestAPIMissFetchesAndStores(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/api/inventory", 200, `{"tanks":[1,2]}`)
	p := newTestProxy(t, ff, nil)

	resp, err := p.Handle(ctx, getReq(t, "/api/inventory"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != 200 || string(resp.Body) != `{"tanks":[1,2]}` {
		t.Fatalf("status=%d body=%q", resp.Status, resp.Body)
	}

	key := requestKey(getReq(t, "/api/inventory"))
	if _, _, ok := p.reg.Match(ctx, partitionName(roleAPI, "v1"), key); !ok {
		t.Fatalf("API response was not stored")
	}
}

// With a cached entry, the cached body returns immediately even when the
// network has newer data; the background refresh converges eventually.
func TestAPIImmediateReturnThenRefresh(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/api/inventory", 200, `{"rev":1}`)
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/api/inventory")); err != nil {
		t.Fatalf("warm: %v", err)
	}

	ff.serve("/api/inventory", 200, `{"rev":2}`)

	resp, err := p.Handle(ctx, getReq(t, "/api/inventory"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if string(resp.Body) != `{"rev":1}` {
		t.Fatalf("immediate-return violated: got %q", resp.Body)
	}

	// refresh overwrites the entry without touching the returned response
	key := requestKey(getReq(t, "/api/inventory"))
	ok := waitFor(t, 2*time.Second, func() bool {
		cached, _, ok := p.reg.Match(ctx, partitionName(roleAPI, "v1"), key)
		return ok && bytes.Equal(cached.Body, []byte(`{"rev":2}`))
	})
	if !ok {
		t.Fatalf("background refresh never converged")
	}
	if string(resp.Body) != `{"rev":1}` {
		t.Fatalf("refresh mutated the already-returned response")
	}
}

// Cached entry present, network unreachable: cached entry returns with
// status 200; the refresh attempt fails without affecting it.
func TestAPIServesCachedWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/api/sales", 200, `{"total":42}`)
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/api/sales")); err != nil {
		t.Fatalf("warm: %v", err)
	}

	ff.fail(errors.New("unreachable"))

	resp, err := p.Handle(ctx, getReq(t, "/api/sales"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != 200 || string(resp.Body) != `{"total":42}` {
		t.Fatalf("status=%d body=%q", resp.Status, resp.Body)
	}

	// cached copy survives the failed refresh
	key := requestKey(getReq(t, "/api/sales"))
	p.wg.Wait()
	if cached, _, ok := p.reg.Match(ctx, partitionName(roleAPI, "v1"), key); !ok || string(cached.Body) != `{"total":42}` {
		t.Fatalf("failed refresh damaged the cached entry")
	}
}

// No cached entry, network unreachable: structured offline 503, not a raw
// transport error.
func TestAPIOffline503(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.fail(errors.New("unreachable"))
	p := newTestProxy(t, ff, nil)

	resp, err := p.Handle(ctx, getReq(t, "/api/reconciliation"))
	if err != nil {
		t.Fatalf("expected structured offline response, got error %v", err)
	}
	if resp.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Status)
	}
	if !bytes.Contains(resp.Body, []byte(`"offline":true`)) {
		t.Fatalf("missing offline marker: %s", resp.Body)
	}
	if resp.Header.Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
}

// Background refresh is not attempted while the connectivity signal says
// offline.
func TestAPINoRefreshWhileOffline(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/api/depots", 200, `[]`)
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/api/depots")); err != nil {
		t.Fatalf("warm: %v", err)
	}
	p.SetOnline(false)

	if _, err := p.Handle(ctx, getReq(t, "/api/depots")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	p.wg.Wait()
	if got := ff.calls("/api/depots"); got != 1 {
		t.Fatalf("refresh attempted while offline: %d network calls", got)
	}
}

// ==============================
// Network-first (dynamic content)
// ==============================

func TestNetworkFirstFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/reports/variance", 200, "report-v1")
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/reports/variance")); err != nil {
		t.Fatalf("warm: %v", err)
	}

	ff.fail(errors.New("unreachable"))

	resp, err := p.Handle(ctx, getReq(t, "/reports/variance"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if string(resp.Body) != "report-v1" {
		t.Fatalf("expected cached copy, got %q", resp.Body)
	}
	if resp.Header.Get(DispositionHeader) != "stale" {
		t.Fatalf("expected stale disposition, got %q", resp.Header.Get(DispositionHeader))
	}
}

func TestNetworkFirstSurfacesFailureWithoutCache(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.fail(errors.New("unreachable"))
	p := newTestProxy(t, ff, nil)

	if _, err := p.Handle(ctx, getReq(t, "/reports/unseen")); err == nil {
		t.Fatalf("expected failure to surface when both network and cache miss")
	}
}

// ==============================
// Navigation fallback
// ==============================

func TestNavigationFallback(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.serve("/", 200, "<html>depot app</html>")
	p := newTestProxy(t, ff, func(o *Options) {
		o.Precache = []string{"/"}
	})

	nav := &Request{Method: http.MethodGet, URL: mustURL(t, "/dashboard"), Navigation: true}

	t.Run("network_success_not_cached", func(t *testing.T) {
		ff.serve("/dashboard", 200, "<html>dashboard</html>")
		resp, err := p.Handle(ctx, nav)
		if err != nil || string(resp.Body) != "<html>dashboard</html>" {
			t.Fatalf("err=%v body=%q", err, resp.Body)
		}
		if _, _, ok := p.reg.MatchAny(ctx, requestKey(nav)); ok {
			t.Fatalf("navigation response was cached")
		}
	})

	t.Run("falls_back_to_root_document", func(t *testing.T) {
		ff.fail(errors.New("unreachable"))
		defer ff.fail(nil)
		resp, err := p.Handle(ctx, nav)
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if string(resp.Body) != "<html>depot app</html>" {
			t.Fatalf("expected precached root document, got %q", resp.Body)
		}
	})
}

func TestNavigationPlaceholderWithoutRootDocument(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	ff.fail(errors.New("unreachable"))
	p := newTestProxy(t, ff, nil) // no precache

	nav := &Request{Method: http.MethodGet, URL: mustURL(t, "/anything"), Navigation: true}
	resp, err := p.Handle(ctx, nav)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 placeholder, got %d", resp.Status)
	}
	if !bytes.Contains(resp.Body, []byte("You are offline")) {
		t.Fatalf("placeholder body missing: %q", resp.Body)
	}
}

// ==============================
// Pass-through
// ==============================

func TestNonNetworkSchemePassesThrough(t *testing.T) {
	ctx := context.Background()
	ff := newFakeFetcher()
	p := newTestProxy(t, ff, nil)

	req := &Request{Method: http.MethodGet, URL: mustURL(t, "chrome-extension://abc/settings.js")}
	if _, err := p.Handle(ctx, req); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, _, ok := p.reg.MatchAny(ctx, requestKey(req)); ok {
		t.Fatalf("non-network scheme was cached")
	}
}
