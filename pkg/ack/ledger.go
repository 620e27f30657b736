// Package ack implements the packet-level acknowledgement scheme: a sliding
// bitfield on the incoming side, and a record of what we have sent on the
// outgoing side, tying peer acks back to the fragments and RTT samples they
// discharge.
package ack

import (
	"time"

	"lanelink/pkg/seqnum"
)

// FragRef names one fragment transmission that rode inside a particular
// flushed packet, so that acknowledging the packet can discharge it.
type FragRef struct {
	Lane    uint32
	MsgSeq  uint16
	FragIdx uint8
}

type flushRecord struct {
	sentAt    time.Time
	fragsSent []FragRef
}

// Ledger tracks both directions of packet acknowledgement for one
// connection: which of the peer's packets we have received (incoming side),
// and which of our own packets the peer has acknowledged (outgoing side).
type Ledger struct {
	hasRecv  bool
	lastRecv seqnum.Seq
	bits     uint32

	flushed map[seqnum.Seq]flushRecord
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{flushed: make(map[seqnum.Seq]flushRecord)}
}

// Receive updates the incoming-side bitfield with a freshly-parsed packet
// sequence, per §4.4's incoming-side rule.
func (l *Ledger) Receive(s seqnum.Seq) {
	if !l.hasRecv {
		l.hasRecv = true
		l.lastRecv = s
		l.bits = 0
		return
	}
	if s == l.lastRecv {
		return
	}
	if s.Greater(l.lastRecv) {
		diff := seqnum.Diff(l.lastRecv, s)
		l.bits = shiftBits(l.bits, diff)
		if diff-1 < 32 {
			l.bits |= 1 << uint(diff-1)
		}
		l.lastRecv = s
		return
	}
	diff := seqnum.Diff(s, l.lastRecv)
	if diff-1 >= 0 && diff-1 < 32 {
		l.bits |= 1 << uint(diff-1)
	}
	// Else: too old to represent in the window; the peer is not informed,
	// but frame processing for this packet still proceeds.
}

func shiftBits(bits uint32, diff int32) uint32 {
	if diff >= 32 {
		return 0
	}
	return bits << uint(diff)
}

// Header returns the (last_recv, ack_bits) pair to stamp on our next
// outgoing packet header.
func (l *Ledger) Header() (lastRecv uint16, bits uint32) {
	return uint16(l.lastRecv), l.bits
}

// RecordFlush indexes a just-flushed packet under its sequence so a later
// peer ack can discharge the fragments it carried.
func (l *Ledger) RecordFlush(packetSeq seqnum.Seq, sentAt time.Time, frags []FragRef) {
	if len(frags) == 0 {
		return
	}
	l.flushed[packetSeq] = flushRecord{sentAt: sentAt, fragsSent: frags}
}

// ProcessAck walks the 33 packet sequences a peer header of (lastRecv, bits)
// acknowledges, discharging any fragments we have a flush record for and
// collecting one RTT sample per newly-acknowledged packet.
func (l *Ledger) ProcessAck(lastRecv uint16, bits uint32, now time.Time) ([]FragRef, []time.Duration) {
	var frags []FragRef
	var samples []time.Duration

	discharge := func(s seqnum.Seq) {
		rec, ok := l.flushed[s]
		if !ok {
			return
		}
		frags = append(frags, rec.fragsSent...)
		samples = append(samples, now.Sub(rec.sentAt))
		delete(l.flushed, s)
	}

	discharge(seqnum.Seq(lastRecv))
	for i := 0; i < 32; i++ {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		discharge(seqnum.Seq(lastRecv).Add(uint16(-(i + 1))))
	}

	return frags, samples
}

// GC discards flush records older than maxAge, for packets the peer will
// never acknowledge (lost, or the connection's ack window has moved on).
// Callers pass pto*k per §4.4.
func (l *Ledger) GC(now time.Time, maxAge time.Duration) {
	for s, rec := range l.flushed {
		if now.Sub(rec.sentAt) > maxAge {
			delete(l.flushed, s)
		}
	}
}

// PendingFlushed reports how many of our own packets are still awaiting the
// peer's acknowledgement, for tests and memory introspection.
func (l *Ledger) PendingFlushed() int { return len(l.flushed) }
