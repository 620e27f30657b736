package ack

import (
	"testing"
	"time"

	"lanelink/pkg/seqnum"
)

func TestReceiveFirstPacket(t *testing.T) {
	l := New()
	l.Receive(seqnum.Seq(5))
	lastRecv, bits := l.Header()
	if lastRecv != 5 || bits != 0 {
		t.Fatalf("Header() = (%d, %#x), want (5, 0x0)", lastRecv, bits)
	}
}

func TestReceive33Consecutive(t *testing.T) {
	// S6: receive packets 0..32 inclusive (33 packets).
	l := New()
	for s := uint16(0); s <= 32; s++ {
		l.Receive(seqnum.Seq(s))
	}
	lastRecv, bits := l.Header()
	if lastRecv != 32 {
		t.Fatalf("lastRecv = %d, want 32", lastRecv)
	}
	if bits != 0xFFFFFFFF {
		t.Fatalf("bits = %#x, want 0xFFFFFFFF", bits)
	}

	// Gap at 33, then receive 34.
	l.Receive(seqnum.Seq(34))
	lastRecv, bits = l.Header()
	if lastRecv != 34 {
		t.Fatalf("lastRecv = %d, want 34", lastRecv)
	}
	if bits&1 != 0 {
		t.Error("bit 0 (seq 33) should be clear: it was never received")
	}
	for i := 1; i <= 31; i++ {
		if bits&(1<<uint(i)) == 0 {
			t.Errorf("bit %d should be set (seq %d was received)", i, 34-1-i)
		}
	}
}

func TestReceiveDuplicateIgnored(t *testing.T) {
	l := New()
	l.Receive(seqnum.Seq(1))
	l.Receive(seqnum.Seq(2))
	before, beforeBits := l.Header()
	l.Receive(seqnum.Seq(2))
	after, afterBits := l.Header()
	if before != after || beforeBits != afterBits {
		t.Error("duplicate receive must not change ledger state")
	}
}

func TestReceiveOutOfOrderWithinWindow(t *testing.T) {
	l := New()
	l.Receive(seqnum.Seq(10))
	l.Receive(seqnum.Seq(12)) // gap at 11
	l.Receive(seqnum.Seq(11))

	_, bits := l.Header()
	// bit for seq 11 relative to last_recv=12 is bit 0.
	if bits&1 == 0 {
		t.Error("late-arriving seq 11 should set bit 0 relative to last_recv=12")
	}
}

func TestProcessAckDischargesFlushedPacket(t *testing.T) {
	l := New()
	now := time.Now()
	frags := []FragRef{{Lane: 0, MsgSeq: 0, FragIdx: 0}}
	l.RecordFlush(seqnum.Seq(5), now, frags)

	later := now.Add(20 * time.Millisecond)
	gotFrags, samples := l.ProcessAck(5, 0, later)
	if len(gotFrags) != 1 || gotFrags[0] != frags[0] {
		t.Fatalf("gotFrags = %v, want %v", gotFrags, frags)
	}
	if len(samples) != 1 || samples[0] != 20*time.Millisecond {
		t.Fatalf("samples = %v, want [20ms]", samples)
	}
	if l.PendingFlushed() != 0 {
		t.Error("acked packet should be removed from the flushed set")
	}
}

func TestProcessAckViaBitfield(t *testing.T) {
	l := New()
	now := time.Now()
	l.RecordFlush(seqnum.Seq(3), now, []FragRef{{Lane: 1, MsgSeq: 0, FragIdx: 0}})

	// last_recv=5, bit 1 represents seq 5-1-1=3.
	gotFrags, samples := l.ProcessAck(5, 1<<1, now.Add(time.Millisecond))
	if len(gotFrags) != 1 {
		t.Fatalf("gotFrags = %v, want 1 entry", gotFrags)
	}
	if len(samples) != 1 {
		t.Fatalf("samples = %v, want 1 entry", samples)
	}
}

func TestProcessAckIdempotent(t *testing.T) {
	l := New()
	now := time.Now()
	l.RecordFlush(seqnum.Seq(1), now, []FragRef{{Lane: 0, MsgSeq: 0, FragIdx: 0}})

	frags1, _ := l.ProcessAck(1, 0, now)
	frags2, _ := l.ProcessAck(1, 0, now)
	if len(frags1) != 1 {
		t.Fatalf("first ProcessAck returned %d frags, want 1", len(frags1))
	}
	if len(frags2) != 0 {
		t.Fatalf("second ProcessAck (re-ack) should discharge nothing, got %v", frags2)
	}
}

func TestGCDropsStaleFlushedEntries(t *testing.T) {
	l := New()
	now := time.Now()
	l.RecordFlush(seqnum.Seq(1), now, []FragRef{{Lane: 0, MsgSeq: 0, FragIdx: 0}})

	l.GC(now.Add(time.Second), 2*time.Second)
	if l.PendingFlushed() != 1 {
		t.Fatal("entry should survive GC before maxAge elapses")
	}
	l.GC(now.Add(5*time.Second), 2*time.Second)
	if l.PendingFlushed() != 0 {
		t.Fatal("entry should be collected once older than maxAge")
	}
}
