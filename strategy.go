package offcache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/unkn0wn-root/offcache/internal/util"
)

func requestKey(req *Request) string {
	return util.RequestKey(req.Method, req.URL)
}

// cacheable reports whether a fetched response may be written to a
// partition. Only successful responses are snapshotted.
func cacheable(resp *Response) bool {
	return resp.Status >= 200 && resp.Status < 300
}

// cacheFirst serves static assets: cached copy wins outright, network fills
// the cache on miss, network failure propagates to the caller.
func (p *proxy) cacheFirst(ctx context.Context, req *Request) (*Response, error) {
	key := requestKey(req)
	static := partitionName(roleStatic, p.version)

	if resp, _, ok := p.reg.Match(ctx, static, key); ok {
		return mark(resp, "hit"), nil
	}

	resp, err := p.fetch.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if cacheable(resp) {
		_ = p.reg.Put(ctx, static, key, resp) // write failure never fails the request
	}
	return mark(resp, "miss"), nil
}

// networkFirst serves dynamic content: live response wins and refreshes the
// dynamic partition; on network failure any cached copy (any partition) is
// better than nothing; with neither, the failure surfaces.
func (p *proxy) networkFirst(ctx context.Context, req *Request) (*Response, error) {
	key := requestKey(req)

	resp, err := p.fetch.Fetch(ctx, req)
	if err == nil {
		if cacheable(resp) {
			_ = p.reg.Put(ctx, partitionName(roleDynamic, p.version), key, resp)
		}
		return mark(resp, "miss"), nil
	}

	if cached, _, ok := p.reg.MatchAny(ctx, key); ok {
		return mark(cached, "stale"), nil
	}
	return nil, err
}

// apiCache serves API data: a cached copy returns immediately and, when the
// connectivity signal says we are reachable, a single background refresh
// overwrites the entry without touching the response already returned. A
// miss goes to the network; if that fails too, the caller gets a structured
// offline 503 instead of a raw transport error.
func (p *proxy) apiCache(ctx context.Context, req *Request) (*Response, error) {
	key := requestKey(req)
	api := partitionName(roleAPI, p.version)

	if resp, _, ok := p.reg.Match(ctx, api, key); ok {
		if p.net.Online() {
			p.refreshAsync(req, api, key)
		}
		return mark(resp, "hit"), nil
	}

	resp, err := p.fetch.Fetch(ctx, req)
	if err != nil {
		return offlineResponse(req), nil
	}
	if cacheable(resp) {
		_ = p.reg.Put(ctx, api, key, resp)
	}
	return mark(resp, "miss"), nil
}

// refreshAsync re-fetches an API entry in the background. Best-effort:
// bounded by a semaphore, a single attempt with its own timeout, failures
// swallowed. It must never affect the response already returned.
func (p *proxy) refreshAsync(req *Request, partition, key string) {
	select {
	case p.refreshSem <- struct{}{}:
	default:
		return // refresh storm guard; this entry stays stale until next hit
	}

	u := *req.URL
	clone := &Request{Method: req.Method, URL: &u, Header: cloneHeader(req.Header)}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.refreshSem }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := p.fetch.Fetch(ctx, clone)
		if err != nil {
			p.hooks.RefreshFailed(key, err)
			return
		}
		if !cacheable(resp) {
			return
		}
		_ = p.reg.Put(ctx, partition, key, resp)
	}()
}

// navigationFallback serves top-level page loads: live navigation responses
// pass through uncached; on network failure the precached root document is
// served, and with no root document a minimal self-contained offline page
// is synthesized.
func (p *proxy) navigationFallback(ctx context.Context, req *Request) (*Response, error) {
	resp, err := p.fetch.Fetch(ctx, req)
	if err == nil {
		return resp, nil
	}

	rootURL, perr := url.Parse(p.rootDoc)
	if perr == nil {
		rootKey := util.RequestKey(http.MethodGet, rootURL)
		static := partitionName(roleStatic, p.version)
		if cached, _, ok := p.reg.Match(ctx, static, rootKey); ok {
			return mark(cached, "fallback"), nil
		}
	}
	return placeholderResponse(), nil
}

// offlineResponse is the structured "offline, data unavailable" reply for
// unreachable API resources.
func offlineResponse(req *Request) *Response {
	body, _ := json.Marshal(map[string]any{
		"offline":  true,
		"resource": req.URL.Path,
		"error":    "data unavailable while offline",
	})
	h := make(http.Header, 2)
	h.Set("Content-Type", "application/json; charset=utf-8")
	resp := &Response{Status: http.StatusServiceUnavailable, Header: h, Body: body}
	return mark(resp, "offline")
}

const offlineDocument = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Offline</title>
<style>
body{font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;background:#f5f5f5}
main{text-align:center}
button{padding:.6em 1.4em;font-size:1em;cursor:pointer}
</style>
</head>
<body>
<main>
<h1>You are offline</h1>
<p>This page is not available without a connection.</p>
<button onclick="location.reload()">Retry</button>
</main>
</body>
</html>`

func placeholderResponse() *Response {
	h := make(http.Header, 2)
	h.Set("Content-Type", "text/html; charset=utf-8")
	resp := &Response{
		Status: http.StatusServiceUnavailable,
		Header: h,
		Body:   []byte(offlineDocument),
	}
	return mark(resp, "offline")
}
