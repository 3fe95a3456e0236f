package offcache

import (
	"net/http"
	"net/url"
)

// Request is the proxy's view of an intercepted outgoing request.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte

	// Navigation marks a top-level document load (as opposed to a
	// subresource or data fetch). Set by the caller or derived from
	// Sec-Fetch-Mode when the proxy runs as an HTTP handler.
	Navigation bool
}

// Response is a snapshot of an HTTP-shaped response. Cached and live
// responses share this type so callers cannot tell them apart except via
// the explicit offline status codes and the disposition header.
type Response struct {
	Status int         `json:"status" msgpack:"status"`
	Header http.Header `json:"header" msgpack:"header"`
	Body   []byte      `json:"body" msgpack:"body"`
}

// Header names stamped onto responses passing through the proxy.
const (
	// DispositionHeader says how a response was satisfied:
	// hit, miss, stale, offline or fallback.
	DispositionHeader = "X-Offcache"

	// CapturedAtHeader carries the capture timestamp (RFC 3339) on
	// responses served from or written to a partition.
	CapturedAtHeader = "X-Offcache-Captured-At"
)

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		vv := make([]string, len(vs))
		copy(vv, vs)
		out[k] = vv
	}
	return out
}

// mark sets the disposition header, allocating the header map if needed.
func mark(resp *Response, disposition string) *Response {
	if resp.Header == nil {
		resp.Header = make(http.Header, 1)
	}
	resp.Header.Set(DispositionHeader, disposition)
	return resp
}
