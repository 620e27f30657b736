package lane

import (
	"bytes"
	"testing"
	"time"

	"lanelink/pkg/wire"
)

func admitWhole(t *testing.T, r *Receiver, msgSeq uint16, payload []byte, now time.Time) [][]byte {
	t.Helper()
	out, _, err := r.Admit(msgSeq, wire.EncodePosition(0, true), payload, now)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	return out
}

func TestUnreliableUnorderedDeliversImmediately(t *testing.T) {
	r := NewReceiver(UnreliableUnordered, 100, 0)
	now := time.Now()
	out := admitWhole(t, r, 0, []byte("a"), now)
	if len(out) != 1 || !bytes.Equal(out[0], []byte("a")) {
		t.Fatalf("out = %v", out)
	}
}

func TestUnreliableSequencedDropsStale(t *testing.T) {
	// S3: send A(seq=0), B(seq=1), C(seq=2); deliver order [B, A, C].
	r := NewReceiver(UnreliableSequenced, 100, 0)
	now := time.Now()

	outB := admitWhole(t, r, 1, []byte("B"), now)
	outA := admitWhole(t, r, 0, []byte("A"), now)
	outC := admitWhole(t, r, 2, []byte("C"), now)

	if len(outB) != 1 || !bytes.Equal(outB[0], []byte("B")) {
		t.Fatalf("B should be delivered, got %v", outB)
	}
	if len(outA) != 0 {
		t.Fatalf("A should be discarded as stale, got %v", outA)
	}
	if len(outC) != 1 || !bytes.Equal(outC[0], []byte("C")) {
		t.Fatalf("C should be delivered, got %v", outC)
	}
}

func TestReliableOrderedBuffersAndDrains(t *testing.T) {
	// S4: send A, B, C; deliver packets [P(B), P(A), P(C)].
	r := NewReceiver(ReliableOrdered, 100, 0)
	now := time.Now()

	outB := admitWhole(t, r, 1, []byte("B"), now)
	if len(outB) != 0 {
		t.Fatalf("B should be buffered pending A, got %v", outB)
	}
	if r.PendingOrdered() != 1 {
		t.Fatalf("PendingOrdered() = %d, want 1", r.PendingOrdered())
	}

	outA := admitWhole(t, r, 0, []byte("A"), now)
	if len(outA) != 2 {
		t.Fatalf("A's arrival should drain A then B, got %v", outA)
	}
	if !bytes.Equal(outA[0], []byte("A")) || !bytes.Equal(outA[1], []byte("B")) {
		t.Fatalf("delivery order = %v, want [A, B]", outA)
	}

	outC := admitWhole(t, r, 2, []byte("C"), now)
	if len(outC) != 1 || !bytes.Equal(outC[0], []byte("C")) {
		t.Fatalf("C should deliver immediately, got %v", outC)
	}
}

func TestReliableOrderedDiscardsStaleDuplicate(t *testing.T) {
	r := NewReceiver(ReliableOrdered, 100, 0)
	now := time.Now()
	admitWhole(t, r, 0, []byte("A"), now)
	out, res, err := r.Admit(0, wire.EncodePosition(0, true), []byte("A-retransmit"), now)
	if err != nil || len(out) != 0 {
		t.Fatalf("stale duplicate should be discarded, got %v err=%v", out, err)
	}
	if res != OutcomeStaleMessage {
		t.Fatalf("res = %v, want OutcomeStaleMessage", res)
	}
}

func TestAdmitReportsDuplicateFragment(t *testing.T) {
	r := NewReceiver(ReliableOrdered, 4, 0)
	now := time.Now()
	if _, res, err := r.Admit(0, wire.EncodePosition(0, false), []byte("ab"), now); err != nil || res != OutcomeIncomplete {
		t.Fatalf("first fragment: res=%v err=%v", res, err)
	}
	_, res, err := r.Admit(0, wire.EncodePosition(0, false), []byte("ab"), now)
	if err != nil {
		t.Fatalf("duplicate fragment returned error: %v", err)
	}
	if res != OutcomeDuplicateFragment {
		t.Fatalf("res = %v, want OutcomeDuplicateFragment", res)
	}
}

func TestReliableUnorderedDeduplicatesAndEmitsOnArrival(t *testing.T) {
	r := NewReceiver(ReliableUnordered, 100, 0)
	now := time.Now()

	out1 := admitWhole(t, r, 5, []byte("x"), now)
	if len(out1) != 1 {
		t.Fatalf("first arrival should deliver, got %v", out1)
	}
	out2 := admitWhole(t, r, 5, []byte("x-dup"), now)
	if len(out2) != 0 {
		t.Fatalf("duplicate seq should be discarded, got %v", out2)
	}

	out3 := admitWhole(t, r, 4, []byte("earlier"), now)
	if len(out3) != 1 {
		t.Fatalf("an earlier, not-yet-seen seq inside the window still delivers, got %v", out3)
	}
}

func TestFragmentTimeoutReapedWithoutDelivery(t *testing.T) {
	// S5: UnreliableUnordered, drop_after=1s. Only fragment 0 of 2 arrives.
	r := NewReceiver(UnreliableUnordered, 100, 0)
	now := time.Now()

	out, res, err := r.Admit(0, wire.EncodePosition(0, false), []byte("partial"), now)
	if err != nil || len(out) != 0 {
		t.Fatalf("partial fragment should not deliver yet: out=%v err=%v", out, err)
	}
	if res != OutcomeIncomplete {
		t.Fatalf("res = %v, want OutcomeIncomplete", res)
	}

	dropped := r.ReapTimeouts(now.Add(1500*time.Millisecond), time.Second)
	if len(dropped) != 1 {
		t.Fatalf("dropped = %v, want one reaped message", dropped)
	}
	if r.PendingReassembly() != 0 {
		t.Error("reaped message should no longer be pending")
	}
}
