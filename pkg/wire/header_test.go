package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	headers := []Header{
		{PacketSeq: 0, LastRecv: 0, AckBits: 0},
		{PacketSeq: 65535, LastRecv: 1, AckBits: 0xFFFFFFFF},
		{PacketSeq: 32, LastRecv: 34, AckBits: 0xFFFFFFFE},
	}
	for _, h := range headers {
		w := NewWriter(nil)
		h.Encode(w)
		if w.Len() != HeaderSize {
			t.Fatalf("encoded header is %d bytes, want %d", w.Len(), HeaderSize)
		}
		got, err := DecodeHeader(NewReader(w.Bytes()))
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		if got != h {
			t.Errorf("round trip = %+v, want %+v", got, h)
		}
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	if _, err := DecodeHeader(NewReader(make([]byte, HeaderSize-1))); err == nil {
		t.Error("expected error decoding a truncated header")
	}
}
