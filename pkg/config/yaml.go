package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"lanelink/pkg/lane"
)

var kindNames = map[string]lane.Kind{
	"unreliable_unordered": lane.UnreliableUnordered,
	"unreliable_sequenced": lane.UnreliableSequenced,
	"reliable_unordered":   lane.ReliableUnordered,
	"reliable_ordered":     lane.ReliableOrdered,
}

// yamlLane mirrors LaneConfig with ResendAfter as a parseable string
// ("250ms", "2s"), the way this codebase's other YAML-backed duration
// fields are written.
type yamlLane struct {
	Name                 string `yaml:"name"`
	KindName             string `yaml:"kind"`
	BandwidthBytesPerSec int    `yaml:"bandwidth_bytes_per_sec"`
	BandwidthBurstBytes  int    `yaml:"bandwidth_burst_bytes"`
	ResendAfter          string `yaml:"resend_after"`
	SendBacklog          int    `yaml:"send_backlog"`
}

type yamlConfig struct {
	MTU             int        `yaml:"mtu"`
	Lanes           []yamlLane `yaml:"lanes"`
	InitialRTT      string     `yaml:"initial_rtt"`
	AckTimeout      string     `yaml:"ack_timeout"`
	DropAfter       string     `yaml:"drop_after"`
	KeepaliveEvery  string     `yaml:"keepalive_every"`
	ReassemblyCap   int        `yaml:"reassembly_cap_bytes"`
	FlushedGCFactor int        `yaml:"flushed_gc_factor"`
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Load parses a YAML document into a Config, resolving each lane's textual
// kind name into its lane.Kind value and every duration field from its
// Go-syntax string form. It does not call Validate; callers should do that
// themselves once the Config is fully assembled.
func Load(r io.Reader) (Config, error) {
	var raw yamlConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg := Config{
		MTU:             raw.MTU,
		ReassemblyCap:   raw.ReassemblyCap,
		FlushedGCFactor: raw.FlushedGCFactor,
	}
	var err error
	if cfg.InitialRTT, err = parseDuration(raw.InitialRTT); err != nil {
		return Config{}, fmt.Errorf("config: initial_rtt: %w", err)
	}
	if cfg.AckTimeout, err = parseDuration(raw.AckTimeout); err != nil {
		return Config{}, fmt.Errorf("config: ack_timeout: %w", err)
	}
	if cfg.DropAfter, err = parseDuration(raw.DropAfter); err != nil {
		return Config{}, fmt.Errorf("config: drop_after: %w", err)
	}
	if cfg.KeepaliveEvery, err = parseDuration(raw.KeepaliveEvery); err != nil {
		return Config{}, fmt.Errorf("config: keepalive_every: %w", err)
	}

	for _, rl := range raw.Lanes {
		kind, ok := kindNames[rl.KindName]
		if !ok {
			return Config{}, fmt.Errorf("config: lane %q: unknown kind %q", rl.Name, rl.KindName)
		}
		resendAfter, err := parseDuration(rl.ResendAfter)
		if err != nil {
			return Config{}, fmt.Errorf("config: lane %q: resend_after: %w", rl.Name, err)
		}
		cfg.Lanes = append(cfg.Lanes, LaneConfig{
			Name:                 rl.Name,
			Kind:                 kind,
			KindName:             rl.KindName,
			BandwidthBytesPerSec: rl.BandwidthBytesPerSec,
			BandwidthBurstBytes:  rl.BandwidthBurstBytes,
			ResendAfter:          resendAfter,
			SendBacklog:          rl.SendBacklog,
		})
	}
	return cfg, nil
}
