// Package fragment implements message fragmentation on the sender side and
// reassembly on the receiver side.
package fragment

import (
	"errors"

	"lanelink/pkg/wire"
)

// MaxFrags is the largest number of fragments a single message may be split
// into: position's low 7 bits carry the fragment index, 0..127.
const MaxFrags = 128

// ErrMessageTooLarge is returned by Fragment when a payload needs more than
// MaxFrags fragments at the configured MaxPayload size.
var ErrMessageTooLarge = errors.New("fragment: message exceeds MaxPayload * MaxFrags")

// Piece is one (position byte, payload slice) pair produced by Fragment.
// Payload aliases the input slice; it is never copied.
type Piece struct {
	Position uint8
	Payload  []byte
}

// FragIndex returns the fragment's index within its message.
func (p Piece) FragIndex() uint8 { return p.Position & wire.PositionIndexMask }

// IsLast reports whether this is the final fragment of its message.
func (p Piece) IsLast() bool { return p.Position&wire.PositionLastBit != 0 }

// MaxPayloadForMTU derives the largest fragment payload that fits a packet
// of the given MTU, after subtracting the fixed packet header and the
// per-frame header/length-prefix overhead of a single maximal frame.
func MaxPayloadForMTU(mtu int) int {
	// Worst case per-frame overhead: a multi-byte lane varint (up to 5
	// bytes for lanes < 2^32), 2 bytes msg_seq, 1 byte position, and a
	// varint payload length (up to 5 bytes for payloads well past any
	// sane MTU). Using the worst case keeps MaxPayload a safe constant
	// rather than MTU-and-lane-index dependent.
	const laneVarintMax = 5
	const msgSeqLen = 2
	const positionLen = 1
	const lengthVarintMax = 5
	overhead := wire.HeaderSize + laneVarintMax + msgSeqLen + positionLen + lengthVarintMax
	n := mtu - overhead
	if n < 0 {
		return 0
	}
	return n
}

// Fragment splits payload into pieces of at most maxPayload bytes each. A
// non-empty payload yields ceil(len/maxPayload) pieces, every one but the
// last exactly maxPayload bytes. An empty payload yields exactly one piece
// with an empty payload, marked last. It fails with ErrMessageTooLarge if
// more than MaxFrags pieces would be required.
func Fragment(payload []byte, maxPayload int) ([]Piece, error) {
	if maxPayload <= 0 {
		maxPayload = 1
	}
	if len(payload) == 0 {
		return []Piece{{Position: wire.EncodePosition(0, true), Payload: payload[:0]}}, nil
	}

	numFrags := (len(payload) + maxPayload - 1) / maxPayload
	if numFrags > MaxFrags {
		return nil, ErrMessageTooLarge
	}

	pieces := make([]Piece, numFrags)
	for i := 0; i < numFrags; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		last := i == numFrags-1
		pieces[i] = Piece{
			Position: wire.EncodePosition(uint8(i), last),
			Payload:  payload[start:end],
		}
	}
	return pieces, nil
}
