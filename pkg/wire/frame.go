package wire

// PositionLastBit marks a fragment as the final piece of its message.
const PositionLastBit = 0x80

// PositionIndexMask masks out the 7-bit fragment index from a position byte.
const PositionIndexMask = 0x7f

// Frame is a single encapsulated fragment: the lane it belongs to, the
// message sequence it is part of, its position within that message, and its
// payload. A whole, unfragmented message is simply a Frame whose position
// has both the last bit set and index 0.
type Frame struct {
	Lane     uint32
	MsgSeq   uint16
	Position uint8
	Payload  []byte
}

// FragIndex returns the 7-bit fragment index encoded in Position.
func (f Frame) FragIndex() uint8 { return f.Position & PositionIndexMask }

// IsLast reports whether Position marks this as the final fragment.
func (f Frame) IsLast() bool { return f.Position&PositionLastBit != 0 }

// EncodePosition packs a fragment index and last-marker into a position byte.
func EncodePosition(index uint8, last bool) uint8 {
	p := index & PositionIndexMask
	if last {
		p |= PositionLastBit
	}
	return p
}

// EncodedLen returns the number of bytes Encode would append for f, without
// encoding it. Used by the scheduler to test whether a candidate frame fits
// in the packet's remaining space before committing to it.
func (f Frame) EncodedLen() int {
	return UvarintSize(uint64(f.Lane)) + 2 /* msg_seq */ + 1 /* position */ + UvarintSize(uint64(len(f.Payload))) + len(f.Payload)
}

// Encode appends f's wire encoding to w: lane varint, msg_seq u16, position
// u8, then a varint-length-prefixed payload.
func (f Frame) Encode(w *Writer) {
	w.PutVarint(uint64(f.Lane))
	w.PutUint16(f.MsgSeq)
	w.PutUint8(f.Position)
	w.PutVarintBytes(f.Payload)
}

// DecodeFrame reads one Frame from the front of r. Per the wire format, any
// decode error here signals end-of-packet for the caller: frames already
// parsed from the same packet remain valid and committed.
func DecodeFrame(r *Reader) (Frame, error) {
	lane, err := r.Varint()
	if err != nil {
		return Frame{}, err
	}
	msgSeq, err := r.Uint16()
	if err != nil {
		return Frame{}, err
	}
	position, err := r.Uint8()
	if err != nil {
		return Frame{}, err
	}
	payload, err := r.VarintBytes()
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Lane:     uint32(lane),
		MsgSeq:   msgSeq,
		Position: position,
		Payload:  payload,
	}, nil
}
