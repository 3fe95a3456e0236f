package offcache

import (
	"net/http"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	rt := newRouter([]string{"/api/"}, "erp-data.example.com", DefaultAssetSuffixes)

	cases := []struct {
		name string
		req  Request
		want route
	}{
		{"post_passes", Request{Method: http.MethodPost, URL: mustParse(t, "/api/sales")}, routePass},
		{"put_passes", Request{Method: http.MethodPut, URL: mustParse(t, "/stock/7")}, routePass},
		{"extension_scheme_passes", Request{Method: http.MethodGet, URL: mustParse(t, "chrome-extension://x/y.js")}, routePass},
		{"api_prefix", Request{Method: http.MethodGet, URL: mustParse(t, "/api/inventory")}, routeAPI},
		{"api_host", Request{Method: http.MethodGet, URL: mustParse(t, "https://erp-data.example.com/v2/depots")}, routeAPI},
		{"script_suffix", Request{Method: http.MethodGet, URL: mustParse(t, "/assets/app.js")}, routeStatic},
		{"uppercase_suffix", Request{Method: http.MethodGet, URL: mustParse(t, "/img/LOGO.PNG")}, routeStatic},
		{"woff2", Request{Method: http.MethodGet, URL: mustParse(t, "/fonts/inter.woff2")}, routeStatic},
		{"suffix_with_query", Request{Method: http.MethodGet, URL: mustParse(t, "/assets/app.css?v=3")}, routeStatic},
		{"navigation", Request{Method: http.MethodGet, URL: mustParse(t, "/dashboard"), Navigation: true}, routeNavigation},
		{"default_dynamic", Request{Method: http.MethodGet, URL: mustParse(t, "/reports/variance")}, routeDynamic},
		// API prefix wins over a static-looking suffix under it
		{"api_beats_suffix", Request{Method: http.MethodGet, URL: mustParse(t, "/api/export.css")}, routeAPI},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rt.classify(&tc.req); got != tc.want {
				t.Fatalf("classify(%s %s) = %s, want %s", tc.req.Method, tc.req.URL, got, tc.want)
			}
		})
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
