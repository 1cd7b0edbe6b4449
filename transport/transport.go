// Package transport defines the boundary between the matching engine and the
// wire protocol adapters (HTTP, WebSocket, MQ). The engine binds connections
// to channels and pushes encoded frames; framing, delivery and per-connection
// backpressure are the adapter's concern.
package transport

import (
	"github.com/hupe1980/matchgo/codec"
)

// Transport is implemented by protocol adapters.
//
// Notify must isolate per-recipient failures: one connection failing to
// receive a frame must not prevent delivery to the channel's remaining
// connections. The returned error is diagnostic only; the engine logs it and
// moves on.
type Transport interface {
	// BindChannel attaches a connection to a notification channel.
	BindChannel(connectionID, channelID string)

	// UnbindChannel detaches a connection from a notification channel.
	UnbindChannel(connectionID, channelID string)

	// Notify delivers a frame to every connection bound to the channel.
	Notify(channelID string, frame codec.Frame) error
}
