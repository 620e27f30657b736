package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Lane: 3, MsgSeq: 42, Position: EncodePosition(2, true), Payload: []byte("ij")}

	w := NewWriter(nil)
	f.Encode(w)
	if got, want := w.Len(), f.EncodedLen(); got != want {
		t.Errorf("Encode wrote %d bytes, EncodedLen() = %d", got, want)
	}

	got, err := DecodeFrame(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.Lane != f.Lane || got.MsgSeq != f.MsgSeq || got.Position != f.Position || !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("round trip = %+v, want %+v", got, f)
	}
	if !got.IsLast() || got.FragIndex() != 2 {
		t.Errorf("IsLast()=%v FragIndex()=%d, want true, 2", got.IsLast(), got.FragIndex())
	}
}

func TestEncodePosition(t *testing.T) {
	cases := []struct {
		idx  uint8
		last bool
		want uint8
	}{
		{0, false, 0x00},
		{1, false, 0x01},
		{2, true, 0x82},
		{127, true, 0xFF},
	}
	for _, c := range cases {
		if got := EncodePosition(c.idx, c.last); got != c.want {
			t.Errorf("EncodePosition(%d,%v) = 0x%02x, want 0x%02x", c.idx, c.last, got, c.want)
		}
	}
}

func TestDecodeFrameTerminatesOnError(t *testing.T) {
	// A packet with one valid frame followed by a truncated second frame:
	// the caller is expected to stop parsing on the second frame's error
	// and keep what was already decoded.
	w := NewWriter(nil)
	Frame{Lane: 0, MsgSeq: 1, Position: 0x80, Payload: []byte("ok")}.Encode(w)
	buf := w.Bytes()
	buf = append(buf, 0x00, 0x00) // lane=0 varint, then truncated msg_seq

	r := NewReader(buf)
	first, err := DecodeFrame(r)
	if err != nil {
		t.Fatalf("first frame should decode cleanly: %v", err)
	}
	if string(first.Payload) != "ok" {
		t.Fatalf("first.Payload = %q, want %q", first.Payload, "ok")
	}
	if _, err := DecodeFrame(r); err == nil {
		t.Error("second, truncated frame should fail to decode")
	}
}
