package offcache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher performs the real network call for a request. The proxy never
// talks to the network except through this interface, which is what makes
// the strategy paths testable without sockets.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFetcher fetches against an origin over net/http.
type HTTPFetcher struct {
	// Client defaults to an http.Client with a 30s timeout.
	Client *http.Client
	// Origin, when set, is prepended to the request's path+query (sidecar
	// deployments). When empty the request URL is used as-is.
	Origin string
}

func NewHTTPFetcher(origin string) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
		Origin: strings.TrimRight(origin, "/"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target := req.URL.String()
	if f.Origin != "" {
		target = f.Origin + req.URL.RequestURI()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	for k, vs := range req.Header {
		if strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept-Encoding", "identity")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	hresp, err := client.Do(hreq)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer hresp.Body.Close()

	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}

	resp := &Response{
		Status: hresp.StatusCode,
		Header: cloneHeader(hresp.Header),
		Body:   b,
	}
	resp.Header.Del("Content-Length")
	return resp, nil
}
