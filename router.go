package offcache

import (
	"net/http"
	"strings"
)

// route identifies which strategy serves a request class.
type route uint8

const (
	routePass route = iota // straight to network, no caching
	routeStatic            // cache-first
	routeAPI               // cache-first with background refresh
	routeNavigation        // network with cached/synthesized fallback
	routeDynamic           // network-first (default)
)

func (r route) String() string {
	switch r {
	case routePass:
		return "pass"
	case routeStatic:
		return "static"
	case routeAPI:
		return "api"
	case routeNavigation:
		return "navigation"
	default:
		return "dynamic"
	}
}

// router classifies intercepted requests. Classification is pure and total:
// every request maps to exactly one route, and anything that matches no
// branch falls to routeDynamic rather than erroring.
type router struct {
	apiPrefixes   []string
	apiHost       string
	assetSuffixes []string
}

func newRouter(apiPrefixes []string, apiHost string, assetSuffixes []string) *router {
	lowered := make([]string, len(assetSuffixes))
	for i, s := range assetSuffixes {
		lowered[i] = strings.ToLower(s)
	}
	return &router{
		apiPrefixes:   apiPrefixes,
		apiHost:       apiHost,
		assetSuffixes: lowered,
	}
}

func (rt *router) classify(req *Request) route {
	// non-network schemes (extension-internal etc.) are never intercepted
	if s := req.URL.Scheme; s != "" && s != "http" && s != "https" {
		return routePass
	}
	// only idempotent reads are ever cached
	if req.Method != http.MethodGet {
		return routePass
	}

	path := req.URL.Path
	for _, p := range rt.apiPrefixes {
		if strings.HasPrefix(path, p) {
			return routeAPI
		}
	}
	if rt.apiHost != "" && strings.Contains(req.URL.Host, rt.apiHost) {
		return routeAPI
	}

	lower := strings.ToLower(path)
	for _, suf := range rt.assetSuffixes {
		if strings.HasSuffix(lower, suf) {
			return routeStatic
		}
	}

	if req.Navigation {
		return routeNavigation
	}
	return routeDynamic
}
