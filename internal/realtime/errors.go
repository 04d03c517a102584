package realtime

import "errors"

var (
	// ErrChannelClosed is returned by Connect after Disconnect tore the
	// channel down for good.
	ErrChannelClosed = errors.New("realtime channel closed")

	// ErrEmptyRoom is returned when subscribing to a room with no entity id.
	ErrEmptyRoom = errors.New("room has no entity id")

	// ErrSendBufferFull is returned by Subscribe when the join emission
	// cannot be queued; the listener is not registered in that case.
	ErrSendBufferFull = errors.New("outbound buffer full")
)
