package lanelink

import (
	"time"

	"lanelink/pkg/lane"
	"lanelink/pkg/seqnum"
	"lanelink/pkg/wire"
)

// Recv parses one inbound packet: its header updates the ACK ledger (both
// the incoming sliding bitfield and the discharge of our own previously
// flushed fragments), then its frames are routed to each lane's
// reassembler and delivery policy. A decode error on the header drops the
// whole packet; a decode error on an individual frame ends frame parsing
// for this packet without discarding frames already processed.
func (c *Connection) Recv(buf []byte, now time.Time) error {
	if c.timedOut {
		return ErrPeerTimedOut
	}

	r := wire.NewReader(buf)
	h, err := wire.DecodeHeader(r)
	if err != nil {
		c.stats.PacketsDropped++
		c.log.Debug("dropped packet: short header: %v", err)
		return ErrPacketTooShort
	}
	c.stats.PacketsReceived++

	c.ledger.Receive(seqnum.Seq(h.PacketSeq))

	frags, samples := c.ledger.ProcessAck(h.LastRecv, h.AckBits, now)
	for _, d := range samples {
		c.rtt.Sample(d)
		c.stats.RTTSamples++
	}
	for _, f := range frags {
		if int(f.Lane) >= len(c.senders) {
			continue
		}
		if acked := c.senders[f.Lane].Ack(seqnum.Seq(f.MsgSeq), int(f.FragIdx)); acked {
			c.stats.MessagesAcked++
			c.events = append(c.events, Event{Kind: MessageAcked, Lane: f.Lane, MsgSeq: f.MsgSeq})
			c.log.Debug("message acked lane=%d msg_seq=%d", f.Lane, f.MsgSeq)
		}
	}

	for r.Remaining() > 0 {
		frame, err := wire.DecodeFrame(r)
		if err != nil {
			c.log.Debug("ending frame parse for packet_seq=%d: %v", h.PacketSeq, err)
			break
		}
		c.stats.FramesDecoded++
		c.admitFrame(frame, now)
	}
	return nil
}

func (c *Connection) admitFrame(frame wire.Frame, now time.Time) {
	if int(frame.Lane) >= len(c.receivers) {
		c.stats.FramesDropped++
		c.log.Debug("dropped frame for unknown lane %d", frame.Lane)
		return
	}
	delivered, outcome, err := c.receivers[frame.Lane].Admit(frame.MsgSeq, frame.Position, frame.Payload, now)
	if err != nil {
		c.stats.FramesDropped++
		c.log.Debug("dropped malformed frame lane=%d msg_seq=%d: %v", frame.Lane, frame.MsgSeq, err)
		return
	}

	switch outcome {
	case lane.OutcomeDuplicateFragment:
		c.stats.FragmentsDuplicate++
		c.log.Debug("dropped duplicate fragment lane=%d msg_seq=%d", frame.Lane, frame.MsgSeq)
		return
	case lane.OutcomeResourceExhausted:
		c.stats.ReassemblyDropped++
		c.log.Warn("dropped fragment lane=%d msg_seq=%d: reassembly memory cap exceeded", frame.Lane, frame.MsgSeq)
		return
	case lane.OutcomeStaleMessage:
		c.stats.MessagesStale++
		c.log.Debug("dropped stale message lane=%d msg_seq=%d", frame.Lane, frame.MsgSeq)
		return
	}

	for _, payload := range delivered {
		c.stats.MessagesReceived++
		c.events = append(c.events, Event{Kind: MessageReceived, Lane: frame.Lane, Payload: payload})
	}
}

// Poll drains and returns every event surfaced since the last call.
func (c *Connection) Poll() []Event {
	out := c.events
	c.events = nil
	return out
}
