package offcache

import (
	"sync/atomic"
	"time"
)

// netState tracks the host-reported connectivity signal. The proxy only
// observes and relays it; it never probes the network itself.
type netState struct {
	offline atomic.Bool // zero value = online
	onUp    func(at time.Time)
}

func newNetState(onUp func(time.Time)) *netState {
	return &netState{onUp: onUp}
}

func (n *netState) Online() bool { return !n.offline.Load() }

// Set records the signal. An offline→online transition fires onUp exactly
// once per transition, which is what drives the BACK_ONLINE broadcast.
func (n *netState) Set(online bool) {
	wasOffline := n.offline.Swap(!online)
	if online && wasOffline && n.onUp != nil {
		n.onUp(time.Now())
	}
}
