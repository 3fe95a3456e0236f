package offcache

import (
	"io"
	"net/http"
	"strings"
)

// Handler mounts the proxy as an HTTP front. The foreground application
// points at this handler instead of the backend; responses come back in the
// standard shape with the disposition header stamped on cache-touched
// paths.
func (p *proxy) Handler() http.Handler {
	return http.HandlerFunc(p.serveHTTP)
}

func (p *proxy) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		body = b
	}

	req := &Request{
		Method:     r.Method,
		URL:        r.URL,
		Header:     r.Header,
		Body:       body,
		Navigation: isNavigation(r),
	}

	resp, err := p.Handle(r.Context(), req)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	writeResponse(w, resp)
}

// isNavigation detects a top-level document load. Sec-Fetch-Mode is
// authoritative when present; otherwise a GET that prefers text/html is
// treated as navigation.
func isNavigation(r *http.Request) bool {
	if m := r.Header.Get("Sec-Fetch-Mode"); m != "" {
		return m == "navigate"
	}
	return r.Method == http.MethodGet &&
		strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}
