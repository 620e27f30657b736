// Package config describes a connection's fixed lane set and transport
// tunables, loadable from YAML or assembled programmatically with Builder.
package config

import (
	"errors"
	"fmt"
	"time"

	"lanelink/pkg/lane"
)

// LaneConfig describes one of the connection's preconfigured logical
// streams.
type LaneConfig struct {
	Name                 string
	Kind                 lane.Kind
	KindName             string
	BandwidthBytesPerSec int
	BandwidthBurstBytes  int
	ResendAfter          time.Duration
	// SendBacklog bounds how many not-yet-sent messages a non-reliable
	// lane holds before dropping the oldest. Zero means
	// lane.DefaultSendBacklog; ignored entirely by reliable lanes.
	SendBacklog int
}

// Config is the fixed configuration a Connection is created with: lane
// set and kinds, MTU, and the timeouts that bound reassembly and
// reliability.
type Config struct {
	MTU             int
	Lanes           []LaneConfig
	InitialRTT      time.Duration
	AckTimeout      time.Duration
	DropAfter       time.Duration
	KeepaliveEvery  time.Duration
	ReassemblyCap   int
	FlushedGCFactor int
}

var (
	// ErrNoLanes is returned by Validate when a Config has no lanes.
	ErrNoLanes = errors.New("config: at least one lane is required")
	// ErrInvalidMTU is returned by Validate when MTU is too small to carry
	// a header and any frame.
	ErrInvalidMTU = errors.New("config: mtu too small for a packet header and one frame")
)

// Default returns a Config with the teacher codebase's usual defaults: a
// single reliable-ordered lane, a 1200-byte MTU, and conservative timeouts.
func Default() Config {
	return Config{
		MTU:             1200,
		Lanes:           []LaneConfig{{Name: "default", Kind: lane.ReliableOrdered, KindName: "reliable_ordered"}},
		InitialRTT:      333 * time.Millisecond,
		AckTimeout:      30 * time.Second,
		DropAfter:       5 * time.Second,
		KeepaliveEvery:  2 * time.Second,
		ReassemblyCap:   1 << 20,
		FlushedGCFactor: 4,
	}
}

// Validate reports every violation found in c, joined into a single error,
// or nil if c is usable to build a connection.
func (c Config) Validate() error {
	var errs []error
	if len(c.Lanes) == 0 {
		errs = append(errs, ErrNoLanes)
	}
	if c.MTU < 32 {
		errs = append(errs, ErrInvalidMTU)
	}
	for i, l := range c.Lanes {
		if l.BandwidthBytesPerSec < 0 {
			errs = append(errs, fmt.Errorf("config: lane %d (%s): negative bandwidth", i, l.Name))
		}
		if l.ResendAfter < 0 {
			errs = append(errs, fmt.Errorf("config: lane %d (%s): negative resend_after", i, l.Name))
		}
		if l.SendBacklog < 0 {
			errs = append(errs, fmt.Errorf("config: lane %d (%s): negative send_backlog", i, l.Name))
		}
	}
	if c.FlushedGCFactor <= 0 {
		errs = append(errs, fmt.Errorf("config: flushed_gc_factor must be positive"))
	}
	return errors.Join(errs...)
}

// Builder assembles a Config fluently, for embedders that prefer
// programmatic setup to a YAML file.
type Builder struct {
	cfg Config
}

// NewBuilder starts from Default with its lane list emptied; add lanes with
// Lane or LaneWithBacklog.
func NewBuilder() *Builder {
	b := &Builder{cfg: Default()}
	b.cfg.Lanes = nil
	return b
}

// MTU sets the substrate MTU.
func (b *Builder) MTU(mtu int) *Builder {
	b.cfg.MTU = mtu
	return b
}

// Lane appends one lane to the configuration, with the default send-backlog
// cap for non-reliable lanes. Use LaneWithBacklog to override it.
func (b *Builder) Lane(name string, kind lane.Kind, bandwidthBytesPerSec, burstBytes int, resendAfter time.Duration) *Builder {
	return b.LaneWithBacklog(name, kind, bandwidthBytesPerSec, burstBytes, resendAfter, 0)
}

// LaneWithBacklog appends one lane to the configuration with an explicit
// send-backlog cap (see LaneConfig.SendBacklog).
func (b *Builder) LaneWithBacklog(name string, kind lane.Kind, bandwidthBytesPerSec, burstBytes int, resendAfter time.Duration, sendBacklog int) *Builder {
	b.cfg.Lanes = append(b.cfg.Lanes, LaneConfig{
		Name:                 name,
		Kind:                 kind,
		KindName:             kind.String(),
		BandwidthBytesPerSec: bandwidthBytesPerSec,
		BandwidthBurstBytes:  burstBytes,
		ResendAfter:          resendAfter,
		SendBacklog:          sendBacklog,
	})
	return b
}

// Timeouts sets the ack timeout, reassembly drop timeout, and keepalive
// interval in one call.
func (b *Builder) Timeouts(ackTimeout, dropAfter, keepaliveEvery time.Duration) *Builder {
	b.cfg.AckTimeout = ackTimeout
	b.cfg.DropAfter = dropAfter
	b.cfg.KeepaliveEvery = keepaliveEvery
	return b
}

// InitialRTT sets the RTT estimator's starting smoothed value.
func (b *Builder) InitialRTT(d time.Duration) *Builder {
	b.cfg.InitialRTT = d
	return b
}

// Build returns the assembled Config. It does not validate; call
// Validate on the result if the caller wants to fail fast.
func (b *Builder) Build() Config {
	return b.cfg
}
