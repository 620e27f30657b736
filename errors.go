package lanelink

import "errors"

// Sentinel errors reported synchronously from the connection's public API,
// per the send-side and parse-side conditions of the error taxonomy.
var (
	// ErrMessageTooLarge is returned by Send when a payload needs more
	// fragments than MAX_FRAGS at the connection's configured MaxPayload.
	ErrMessageTooLarge = errors.New("lanelink: message exceeds MaxPayload * MaxFrags")
	// ErrUnknownLane is returned by Send when the lane index has no
	// configured sender/receiver state.
	ErrUnknownLane = errors.New("lanelink: unknown lane index")
	// ErrPacketTooShort is returned by Recv when a packet is too small to
	// hold even a header.
	ErrPacketTooShort = errors.New("lanelink: packet shorter than header")
	// ErrPeerTimedOut is returned by Send and Recv once the connection
	// has declared the peer fatally unreachable (Flush then returns no
	// packets).
	ErrPeerTimedOut = errors.New("lanelink: connection timed out")
)
