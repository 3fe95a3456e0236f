package offcache

import (
	"context"
	"net/http"
	"time"

	c "github.com/unkn0wn-root/offcache/codec"
	fr "github.com/unkn0wn-root/offcache/front"
	st "github.com/unkn0wn-root/offcache/store"
)

// DefaultAssetSuffixes is the static-asset extension allowlist.
var DefaultAssetSuffixes = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".woff", ".woff2",
}

// Proxy is the offline-resilience proxy. Start installs and activates the
// current generation and starts the janitor; Handle satisfies one
// intercepted request; the control-channel methods carry the out-of-band
// protocol with foreground contexts.
type Proxy interface {
	// Start runs install (pre-populate the static partition) and activate
	// (delete superseded generations, begin serving). An install failure is
	// returned but leaves the system no worse than before: until a
	// successful Start, Handle passes requests straight to the network.
	Start(ctx context.Context) error
	Close(ctx context.Context) error

	// Handle satisfies one intercepted request. Exactly one response is
	// produced per request; cached and live responses are
	// indistinguishable except via explicit offline status codes and the
	// disposition header.
	Handle(ctx context.Context, req *Request) (*Response, error)

	// Handler mounts the proxy as an HTTP front (sidecar deployments).
	Handler() http.Handler

	// Subscribe attaches a foreground context to the control channel.
	Subscribe() *Subscriber

	// Command executes a foreground → proxy control message. The reply is
	// non-nil only for request/response message types (GET_OFFLINE_STATUS).
	Command(ctx context.Context, msg Message) (*Message, error)

	// SetOnline relays the host connectivity signal. An offline→online
	// transition broadcasts BACK_ONLINE to every subscriber.
	SetOnline(online bool)
	Online() bool

	State() State
}

// Options configure a Proxy. Version, Store and Fetcher are required;
// everything else has defaults.
type Options struct {
	// Required
	Version string   // generation tag embedded in partition names, e.g. "v7"
	Store   st.Store // durable partition store
	Fetcher Fetcher  // the real network

	Codec c.Codec[Response] // nil => codec.Msgpack[Response]{}
	Front fr.Front          // optional hot read-through layer

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Classification
	APIPrefixes   []string // path prefixes routed to the API strategy; nil => ["/api/"]
	APIHost       string   // host fragment of the backing data service
	AssetSuffixes []string // nil => DefaultAssetSuffixes

	// Install
	Precache     []string // manifest of critical bootstrap assets
	RootDocument string   // navigation fallback document; "" => "/"

	// Janitor
	SweepInterval time.Duration // 0 => 6h
	Retention     time.Duration // 0 => 24h

	RefreshWorkers   int // max concurrent background refreshes; 0 => 8
	SubscriberBuffer int // per-subscriber message buffer; 0 => 16
}

func New(opts Options) (Proxy, error) {
	return newProxy(opts)
}
