package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/matchgo/codec"
)

// Delivery is one frame as received by one connection.
type Delivery struct {
	ChannelID string
	Frame     codec.Frame
}

// Loopback is an in-process Transport that records bindings and deliveries.
//
// It backs the engine's test suites and doubles as a reference for adapter
// authors: note how Notify keeps delivering after a failed recipient.
type Loopback struct {
	mu       sync.Mutex
	channels map[string]map[string]struct{} // channelID -> connection ids
	inboxes  map[string][]Delivery          // connectionID -> received frames
	failing  map[string]struct{}            // connection ids that reject deliveries
}

// NewLoopback creates an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{
		channels: make(map[string]map[string]struct{}),
		inboxes:  make(map[string][]Delivery),
		failing:  make(map[string]struct{}),
	}
}

// BindChannel implements Transport.
func (l *Loopback) BindChannel(connectionID, channelID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	conns, ok := l.channels[channelID]
	if !ok {
		conns = make(map[string]struct{})
		l.channels[channelID] = conns
	}
	conns[connectionID] = struct{}{}
}

// UnbindChannel implements Transport.
func (l *Loopback) UnbindChannel(connectionID, channelID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if conns, ok := l.channels[channelID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(l.channels, channelID)
		}
	}
}

// Notify implements Transport. Failing recipients are skipped, not fatal.
func (l *Loopback) Notify(channelID string, frame codec.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for connID := range l.channels[channelID] {
		if _, bad := l.failing[connID]; bad {
			errs = append(errs, fmt.Errorf("connection %s: delivery refused", connID))
			continue
		}
		l.inboxes[connID] = append(l.inboxes[connID], Delivery{ChannelID: channelID, Frame: frame})
	}
	return errors.Join(errs...)
}

// FailConnection makes every future delivery to the connection fail.
func (l *Loopback) FailConnection(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failing[connectionID] = struct{}{}
}

// Deliveries returns a copy of the frames received by a connection.
func (l *Loopback) Deliveries(connectionID string) []Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Delivery(nil), l.inboxes[connectionID]...)
}

// Bound returns the channel ids a connection is currently bound to.
func (l *Loopback) Bound(connectionID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for chID, conns := range l.channels {
		if _, ok := conns[connectionID]; ok {
			out = append(out, chID)
		}
	}
	return out
}

// Subscribers returns how many connections are bound to a channel.
func (l *Loopback) Subscribers(channelID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.channels[channelID])
}
