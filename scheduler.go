package lanelink

import (
	"time"

	"lanelink/pkg/ack"
	"lanelink/pkg/lane"
	"lanelink/pkg/seqnum"
	"lanelink/pkg/wire"
)

// Flush packs every lane's ready fragments into one or more MTU-bounded
// packets and returns their encoded bytes, per §4.7. Lanes are served in a
// fair round-robin order starting after the lane served last time; within
// a lane, fragments are served in (msg_seq asc, frag_idx asc) order.
func (c *Connection) Flush(now time.Time) [][]byte {
	if c.timedOut {
		return nil
	}
	c.checkAckTimeout(now)
	if c.timedOut {
		return nil
	}
	c.reapReassemblyTimeouts(now)

	pto := c.rtt.PTO()
	ready := make([][]candidateRef, len(c.senders))
	anyReady := false
	for i, s := range c.senders {
		cands := s.ReadyFragments(now, pto)
		if len(cands) > 0 {
			anyReady = true
		}
		refs := make([]candidateRef, len(cands))
		for j, cand := range cands {
			refs[j] = candidateRef{lane: uint32(i), msgSeq: uint16(cand.MsgSeq), fragIdx: cand.FragIdx, frag: cand.Frag}
		}
		ready[i] = refs
	}

	var packets [][]byte
	if anyReady {
		packets = c.packReady(now, ready)
	} else if c.keepaliveDue(now) {
		packets = append(packets, c.finalizeEmptyPacket())
	}

	maxAge := pto * time.Duration(c.cfg.FlushedGCFactor)
	c.ledger.GC(now, maxAge)

	if len(packets) > 0 {
		c.lastSentAt = now
		c.hasSentAny = true
	}
	return packets
}

type candidateRef struct {
	lane    uint32
	msgSeq  uint16
	fragIdx int
	frag    *lane.FragmentState
}

func frameFor(c candidateRef) wire.Frame {
	return wire.Frame{Lane: c.lane, MsgSeq: c.msgSeq, Position: c.frag.Position, Payload: c.frag.Payload}
}

func (c *Connection) keepaliveDue(now time.Time) bool {
	if c.cfg.KeepaliveEvery <= 0 {
		return false
	}
	if !c.hasSentAny {
		return true
	}
	return now.Sub(c.lastSentAt) >= c.cfg.KeepaliveEvery
}

func (c *Connection) checkAckTimeout(now time.Time) {
	if c.cfg.AckTimeout <= 0 {
		return
	}
	for _, s := range c.senders {
		if age, ok := s.OldestPendingAge(now); ok && age > c.cfg.AckTimeout {
			c.declareTimedOut()
			return
		}
	}
}

func (c *Connection) declareTimedOut() {
	if c.timedOut {
		return
	}
	c.timedOut = true
	c.log.Error("peer timed out")
	c.events = append(c.events, Event{Kind: PeerTimedOut})
}

func (c *Connection) reapReassemblyTimeouts(now time.Time) {
	if c.cfg.DropAfter <= 0 {
		return
	}
	for i, r := range c.receivers {
		dropped := r.ReapTimeouts(now, c.cfg.DropAfter)
		if len(dropped) == 0 {
			continue
		}
		c.stats.ReassemblyDropped += uint64(len(dropped))
		c.log.Warn("reaped %d timed-out reassembly slot(s) on lane %d", len(dropped), i)

		if r.Kind().Reliable() {
			c.log.Error("reassembly timeout on reliable lane %d", i)
			c.declareTimedOut()
			return
		}
	}
}

func (c *Connection) finalizeEmptyPacket() []byte {
	lastRecv, bits := c.ledger.Header()
	h := wire.Header{PacketSeq: uint16(c.packetSeq), LastRecv: lastRecv, AckBits: bits}
	w := wire.NewWriter(make([]byte, 0, wire.HeaderSize))
	h.Encode(w)
	seq := c.packetSeq
	c.packetSeq = c.packetSeq.Add(1)
	c.stats.PacketsSent++
	c.log.Debug("flushed keepalive packet packet_seq=%d", uint16(seq))
	return w.Bytes()
}

// packReady greedily packs ready fragments into MTU-bounded packets,
// round-robining across lanes that still have candidates and budget.
func (c *Connection) packReady(now time.Time, ready [][]candidateRef) [][]byte {
	cursor := make([]int, len(ready))
	lastRecv, bits := c.ledger.Header()
	bodyBudget := c.cfg.MTU - wire.HeaderSize

	var packets [][]byte
	body := wire.NewWriter(make([]byte, 0, c.cfg.MTU))
	var flushFrags []ack.FragRef

	finalize := func() {
		if body.Len() == 0 {
			return
		}
		h := wire.Header{PacketSeq: uint16(c.packetSeq), LastRecv: lastRecv, AckBits: bits}
		out := wire.NewWriter(make([]byte, 0, wire.HeaderSize+body.Len()))
		h.Encode(out)
		out.PutBytes(body.Bytes())
		packets = append(packets, out.Bytes())

		c.ledger.RecordFlush(c.packetSeq, now, flushFrags)
		c.stats.PacketsSent++
		c.log.Debug("flushed packet packet_seq=%d frames=%d bytes=%d", uint16(c.packetSeq), len(flushFrags), out.Len())

		c.packetSeq = c.packetSeq.Add(1)
		body = wire.NewWriter(make([]byte, 0, c.cfg.MTU))
		flushFrags = nil
	}

	laneSkipThisPacket := make([]bool, len(ready))

	progressed := true
	for progressed {
		progressed = false
		for offset := 0; offset < len(ready); offset++ {
			i := (c.lastServed + 1 + offset) % len(ready)
			if laneSkipThisPacket[i] || cursor[i] >= len(ready[i]) {
				continue
			}
			cand := ready[i][cursor[i]]

			frame := frameFor(cand)
			encLen := frame.EncodedLen()

			if body.Len()+encLen > bodyBudget {
				finalize()
				for j := range laneSkipThisPacket {
					laneSkipThisPacket[j] = false
				}
				if encLen > bodyBudget {
					// Too large to ever fit, even in an empty packet at
					// this MTU: skip it for this flush rather than loop
					// forever. It stays in the sender unsent.
					cursor[i]++
					continue
				}
			}

			limiter := c.senders[cand.lane].Limiter
			if !limiter.AllowN(now, encLen) {
				laneSkipThisPacket[i] = true
				continue
			}

			frame.Encode(body)
			c.senders[cand.lane].MarkSent(seqnum.Seq(cand.msgSeq), cand.fragIdx, c.packetSeq, now)
			flushFrags = append(flushFrags, ack.FragRef{Lane: cand.lane, MsgSeq: cand.msgSeq, FragIdx: uint8(cand.fragIdx)})

			cursor[i]++
			c.lastServed = i
			progressed = true
		}
	}
	finalize()
	return packets
}
