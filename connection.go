// Package lanelink implements a lane-based message transport and
// reliability layer over an unreliable, MTU-bounded packet substrate:
// fragmentation and reassembly, packet-level acknowledgement, RTT
// estimation, and a bandwidth-aware send scheduler.
package lanelink

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lanelink/pkg/ack"
	"lanelink/pkg/bandwidth"
	"lanelink/pkg/config"
	"lanelink/pkg/fragment"
	"lanelink/pkg/lane"
	"lanelink/pkg/logging"
	"lanelink/pkg/rtt"
	"lanelink/pkg/seqnum"
	"lanelink/pkg/wire"
)

// Connection is a single peer-to-peer transport/reliability session: a pair
// of sender and receiver state per configured lane, sharing one packet
// link. It is single-threaded and non-blocking; every operation takes an
// externally-supplied monotonic timestamp.
type Connection struct {
	cfg        config.Config
	log        *logging.Logger
	maxPayload int

	rtt    *rtt.Estimator
	ledger *ack.Ledger

	senders   []*lane.Sender
	receivers []*lane.Receiver

	packetSeq    seqnum.Seq
	lastServed   int
	lastSentAt   time.Time
	hasSentAny   bool

	timedOut bool
	events   []Event
	stats    Stats
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithLogger routes the connection's log lines through entry instead of the
// package-level default logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Connection) { c.log = logging.New(entry) }
}

// New validates cfg and creates a Connection from it, returning the
// validation error if cfg is unusable. Lane index i of the returned
// connection corresponds to cfg.Lanes[i].
func New(cfg config.Config, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lanelink: invalid config: %w", err)
	}

	c := &Connection{
		cfg:        cfg,
		log:        logging.Default(),
		maxPayload: fragment.MaxPayloadForMTU(cfg.MTU),
		rtt:        rtt.New(cfg.InitialRTT),
		ledger:     ack.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, lc := range cfg.Lanes {
		limiter := bandwidth.Unlimited()
		if lc.BandwidthBytesPerSec > 0 {
			limiter = bandwidth.New(lc.BandwidthBytesPerSec, lc.BandwidthBurstBytes)
		}
		c.senders = append(c.senders, lane.NewSender(lc.Kind, limiter, lc.ResendAfter, lc.SendBacklog))
		c.receivers = append(c.receivers, lane.NewReceiver(lc.Kind, c.maxPayload, cfg.ReassemblyCap))
	}
	return c, nil
}

// Send enqueues payload for transmission on the given lane, fragmenting it
// immediately and assigning it a message sequence. It returns
// ErrMessageTooLarge if payload needs more than fragment.MaxFrags pieces,
// and ErrUnknownLane if lane is out of range.
func (c *Connection) Send(laneIdx uint32, payload []byte, now time.Time) (uint16, error) {
	if c.timedOut {
		return 0, ErrPeerTimedOut
	}
	if int(laneIdx) >= len(c.senders) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownLane, laneIdx)
	}
	msgSeq, droppedOldest, droppedOK, err := c.senders[laneIdx].Enqueue(payload, c.maxPayload, now)
	if err != nil {
		return 0, fmt.Errorf("lanelink: lane %d: %w", laneIdx, ErrMessageTooLarge)
	}
	if droppedOK {
		c.stats.SendBacklogDropped++
		c.log.Warn("send backlog dropped oldest unsent message lane=%d msg_seq=%d", laneIdx, uint16(droppedOldest))
	}
	c.stats.MessagesSent++
	c.log.Debug("enqueued message lane=%d msg_seq=%d bytes=%d", laneIdx, uint16(msgSeq), len(payload))
	return uint16(msgSeq), nil
}

// Stats returns the connection's fault and traffic counters.
func (c *Connection) Stats() Stats { return c.stats }

// TimedOut reports whether the connection has declared the peer fatally
// unreachable. Once true, Send/Flush/Recv are no-ops.
func (c *Connection) TimedOut() bool { return c.timedOut }
