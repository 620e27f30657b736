package lane

import (
	"time"

	"lanelink/pkg/fragment"
	"lanelink/pkg/seqnum"
)

// Receiver holds one lane's reassembly state plus its kind-specific
// delivery policy.
type Receiver struct {
	kind        Kind
	reassembler *fragment.Reassembler

	// UnreliableSequenced
	hasDelivered  bool
	lastDelivered seqnum.Seq

	// ReliableUnordered
	pendingUnordered seqnum.Seq
	seen             *seqnum.Buffer[bool]

	// ReliableOrdered
	pendingOrdered seqnum.Seq
	waiting        map[seqnum.Seq][]byte
}

// Outcome classifies what Admit did with one inbound fragment, so a caller
// can maintain the fault counters and Debug log lines §7/§10.1 call for
// without the reassembler/delivery internals leaking out.
type Outcome int

const (
	// OutcomeIncomplete means the fragment was stored; its message is not
	// yet fully reassembled.
	OutcomeIncomplete Outcome = iota
	// OutcomeDelivered means one or more messages became deliverable.
	OutcomeDelivered
	// OutcomeDuplicateFragment means a fragment already occupied this slot
	// and was dropped without changing any state.
	OutcomeDuplicateFragment
	// OutcomeResourceExhausted means the fragment was dropped because
	// storing it would exceed the reassembler's memory cap.
	OutcomeResourceExhausted
	// OutcomeStaleMessage means the fragment completed a message, but the
	// lane's delivery policy discarded it as stale or already delivered.
	OutcomeStaleMessage
)

// NewReceiver creates a Receiver for one lane of the given kind.
func NewReceiver(kind Kind, maxPayload, maxBytes int) *Receiver {
	r := &Receiver{
		kind:        kind,
		reassembler: fragment.NewReassembler(maxPayload, maxBytes),
	}
	if kind == ReliableUnordered {
		r.seen = seqnum.NewBuffer[bool](ReceiveWindow)
	}
	if kind == ReliableOrdered {
		r.waiting = make(map[seqnum.Seq][]byte)
	}
	return r
}

// Admit feeds one inbound fragment through reassembly and, if it completes
// a message, the lane's delivery policy. It returns every message that
// becomes deliverable as a result (zero, one, or — for ReliableOrdered
// draining a backlog — more than one), in delivery order, plus an Outcome
// classifying what happened for fault-counting purposes.
func (r *Receiver) Admit(msgSeq uint16, position uint8, payload []byte, now time.Time) ([][]byte, Outcome, error) {
	assembled, res, err := r.reassembler.Admit(msgSeq, position, payload, now)
	if err != nil {
		return nil, OutcomeIncomplete, err
	}
	switch res {
	case fragment.AdmitDuplicate:
		return nil, OutcomeDuplicateFragment, nil
	case fragment.AdmitResourceExhausted:
		return nil, OutcomeResourceExhausted, nil
	case fragment.AdmitIncomplete:
		return nil, OutcomeIncomplete, nil
	}

	delivered := r.deliver(seqnum.Seq(msgSeq), assembled)
	if delivered == nil {
		return nil, OutcomeStaleMessage, nil
	}
	return delivered, OutcomeDelivered, nil
}

func (r *Receiver) deliver(seq seqnum.Seq, assembled []byte) [][]byte {
	switch r.kind {
	case UnreliableUnordered:
		return [][]byte{assembled}

	case UnreliableSequenced:
		if r.hasDelivered && !seq.Greater(r.lastDelivered) {
			return nil
		}
		r.hasDelivered = true
		r.lastDelivered = seq
		return [][]byte{assembled}

	case ReliableUnordered:
		diff := seqnum.Diff(r.pendingUnordered, seq)
		if diff < 0 || diff >= ReceiveWindow {
			return nil
		}
		if _, seenAlready := r.seen.Get(seq); seenAlready {
			return nil
		}
		r.seen.Insert(seq, true)
		for {
			if _, ok := r.seen.Get(r.pendingUnordered); !ok {
				break
			}
			r.seen.Remove(r.pendingUnordered)
			r.pendingUnordered = r.pendingUnordered.Add(1)
		}
		return [][]byte{assembled}

	case ReliableOrdered:
		if seq == r.pendingOrdered {
			out := [][]byte{assembled}
			r.pendingOrdered = r.pendingOrdered.Add(1)
			for {
				buffered, ok := r.waiting[r.pendingOrdered]
				if !ok {
					break
				}
				out = append(out, buffered)
				delete(r.waiting, r.pendingOrdered)
				r.pendingOrdered = r.pendingOrdered.Add(1)
			}
			return out
		}
		if seq.Greater(r.pendingOrdered) {
			r.waiting[seq] = assembled
			return nil
		}
		return nil

	default:
		return nil
	}
}

// ReapTimeouts discards reassembly slots that have been idle longer than
// dropAfter, returning the message sequences that were abandoned.
func (r *Receiver) ReapTimeouts(now time.Time, dropAfter time.Duration) []uint16 {
	return r.reassembler.ReapTimeouts(now, dropAfter)
}

// PendingReassembly reports how many messages are mid-reassembly.
func (r *Receiver) PendingReassembly() int { return r.reassembler.Pending() }

// PendingOrdered reports how many completed messages are held back waiting
// for an earlier sequence to arrive, for tests and diagnostics.
func (r *Receiver) PendingOrdered() int { return len(r.waiting) }

// Kind reports the lane's reliability/ordering kind.
func (r *Receiver) Kind() Kind { return r.kind }
