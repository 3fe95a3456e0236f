package util

import "net/url"

// RequestKey builds the cache entry key for a request: "<METHOD> <url>"
// with the fragment stripped (fragments never reach the server, so two
// URLs differing only there are the same resource).
func RequestKey(method string, u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return method + " " + c.String()
}
