package ws

import "context"

// Socket is the minimal duplex contract a streaming client depends on:
// send a text frame, close the connection. Implementations must be safe
// for concurrent use.
type Socket interface {
	// Send writes one text frame to the peer.
	Send(data []byte) error
	// Close shuts the connection down with a normal closure code.
	// It is idempotent.
	Close() error
}

// Handler receives socket lifecycle and message events. The socket that
// produced the event is passed to every callback so handlers can reply
// without holding their own reference. Callbacks for a single socket are
// never invoked concurrently.
type Handler interface {
	// OnOpen is invoked once the connection is established.
	OnOpen(s Socket)
	// OnMessage is invoked for each inbound text frame. The data slice is
	// only valid for the duration of the call.
	OnMessage(s Socket, data []byte)
	// OnClose is invoked when the connection terminates for any reason.
	// err is non-nil for abnormal closures.
	OnClose(s Socket, err error)
}

// Dialer opens a socket to the given endpoint and wires its events to h.
// The production implementation is Dial; tests inject their own.
type Dialer func(ctx context.Context, url string, h Handler) (Socket, error)
