package lane

import (
	"time"

	"lanelink/pkg/bandwidth"
	"lanelink/pkg/fragment"
	"lanelink/pkg/seqnum"
)

// FragmentState is the sender's record of one fragment of one message.
type FragmentState struct {
	Payload []byte
	Position uint8

	sent   bool
	acked  bool
	sentAt time.Time
	packetSeq seqnum.Seq
}

// SentMessage is a message the sender still has some interest in: either it
// has unsent fragments, or (on a reliable lane) fragments awaiting ack.
type SentMessage struct {
	Fragments  []FragmentState
	numUnacked int
	createdAt  time.Time
}

// Candidate is one fragment the scheduler may pack into the current packet.
type Candidate struct {
	MsgSeq  seqnum.Seq
	FragIdx int
	Frag    *FragmentState
}

// Sender holds one lane's outbound message/fragment bookkeeping.
type Sender struct {
	kind    Kind
	Limiter *bandwidth.Limiter

	nextSeq  seqnum.Seq
	order    []seqnum.Seq
	messages map[seqnum.Seq]*SentMessage

	resendAfter time.Duration
	backlog     int
}

// NewSender creates an empty Sender. resendAfter is the configured floor on
// retransmission interval; the effective interval also considers the RTT
// estimator's PTO (see ReadyFragments). backlog bounds how many not-yet-sent
// messages a non-reliable lane holds before the oldest is dropped; a
// non-positive value falls back to DefaultSendBacklog. Reliable lanes
// ignore backlog entirely: they must hold every enqueued message until it
// is acked.
func NewSender(kind Kind, limiter *bandwidth.Limiter, resendAfter time.Duration, backlog int) *Sender {
	if backlog <= 0 {
		backlog = DefaultSendBacklog
	}
	return &Sender{
		kind:        kind,
		Limiter:     limiter,
		messages:    make(map[seqnum.Seq]*SentMessage),
		resendAfter: resendAfter,
		backlog:     backlog,
	}
}

// Enqueue fragments payload and assigns it the next per-lane message
// sequence, registering it for transmission. On a non-reliable lane, if
// this push leaves more than backlog messages still unsent, the oldest
// unsent message is dropped and its sequence returned via droppedOldest
// (ok=false if nothing was dropped), per §7's send-backlog resource-
// exhaustion entry.
func (s *Sender) Enqueue(payload []byte, maxPayload int, now time.Time) (msgSeq seqnum.Seq, droppedOldest seqnum.Seq, droppedOK bool, err error) {
	pieces, err := fragment.Fragment(payload, maxPayload)
	if err != nil {
		return 0, 0, false, err
	}
	msgSeq = s.nextSeq
	s.nextSeq = s.nextSeq.Add(1)

	frags := make([]FragmentState, len(pieces))
	for i, p := range pieces {
		frags[i] = FragmentState{Payload: p.Payload, Position: p.Position}
	}
	s.messages[msgSeq] = &SentMessage{Fragments: frags, numUnacked: len(frags), createdAt: now}
	s.order = append(s.order, msgSeq)

	if !s.kind.Reliable() && len(s.order) > s.backlog {
		droppedOldest = s.order[0]
		s.remove(droppedOldest)
		droppedOK = true
	}
	return msgSeq, droppedOldest, droppedOK, nil
}

// OldestPendingAge returns how long the oldest still-unacked reliable
// message has been waiting, for ack_timeout enforcement. ok is false if
// there is nothing pending.
func (s *Sender) OldestPendingAge(now time.Time) (age time.Duration, ok bool) {
	if !s.kind.Reliable() {
		return 0, false
	}
	var oldest time.Time
	for _, msgSeq := range s.order {
		msg := s.messages[msgSeq]
		if oldest.IsZero() || msg.createdAt.Before(oldest) {
			oldest = msg.createdAt
		}
	}
	if oldest.IsZero() {
		return 0, false
	}
	return now.Sub(oldest), true
}

// resendAfterEffective returns the larger of the configured floor and the
// RTT estimator's current PTO.
func (s *Sender) resendAfterEffective(pto time.Duration) time.Duration {
	if s.resendAfter > pto {
		return s.resendAfter
	}
	return pto
}

// ReadyFragments returns every fragment eligible to be (re)sent right now,
// in (msg_seq asc, frag_idx asc) order: unsent fragments are always ready;
// on reliable lanes, a previously-sent fragment becomes ready again once
// its retransmission deadline has passed.
func (s *Sender) ReadyFragments(now time.Time, pto time.Duration) []Candidate {
	reliable := s.kind.Reliable()
	deadline := s.resendAfterEffective(pto)

	var out []Candidate
	for _, msgSeq := range s.order {
		msg, ok := s.messages[msgSeq]
		if !ok {
			continue
		}
		for i := range msg.Fragments {
			f := &msg.Fragments[i]
			if f.acked {
				continue
			}
			ready := !f.sent || (reliable && now.Sub(f.sentAt) > deadline)
			if ready {
				out = append(out, Candidate{MsgSeq: msgSeq, FragIdx: i, Frag: f})
			}
		}
	}
	return out
}

// MarkSent records that a fragment was just packed into packetSeq at now.
// On an unreliable lane the fragment is discarded immediately (never
// retransmitted); the message is dropped once all of its fragments have
// been written out, with no ack ever surfaced. On a reliable lane the
// fragment is kept, awaiting either ack or its next resend deadline.
func (s *Sender) MarkSent(msgSeq seqnum.Seq, fragIdx int, packetSeq seqnum.Seq, now time.Time) {
	msg, ok := s.messages[msgSeq]
	if !ok {
		return
	}
	f := &msg.Fragments[fragIdx]
	f.sent = true
	f.sentAt = now
	f.packetSeq = packetSeq

	if s.kind.Reliable() {
		return
	}
	f.acked = true
	msg.numUnacked--
	if msg.numUnacked <= 0 {
		s.remove(msgSeq)
	}
}

// Ack discharges one fragment acknowledged by the peer. It reports whether
// that message is now fully acked (every fragment discharged), in which
// case the caller should surface a message-ack event and the message has
// already been removed.
func (s *Sender) Ack(msgSeq seqnum.Seq, fragIdx int) (acked bool) {
	msg, ok := s.messages[msgSeq]
	if !ok {
		return false
	}
	if fragIdx < 0 || fragIdx >= len(msg.Fragments) {
		return false
	}
	f := &msg.Fragments[fragIdx]
	if f.acked {
		return false
	}
	f.acked = true
	msg.numUnacked--
	if msg.numUnacked <= 0 {
		s.remove(msgSeq)
		return true
	}
	return false
}

func (s *Sender) remove(msgSeq seqnum.Seq) {
	delete(s.messages, msgSeq)
	for i, m := range s.order {
		if m == msgSeq {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Pending reports how many messages still have unacked or unsent fragments.
func (s *Sender) Pending() int { return len(s.messages) }
