// Package config assembles the flags a hosting program needs to start a
// Node: listen address, bootstrap contacts, and tuning knobs. Grounded on
// the teacher's host.Builder — a progressive, validated construction
// step collecting everything main needs before handing off to the
// runtime — generalized from Host's fixed Registry/Router/Strategy
// wiring to the smaller set of knobs this node actually takes.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"kadcore/kbucket"
	"kadcore/node"
)

// Config holds everything needed to start one node.
type Config struct {
	ListenAddr  string
	Bootstrap   []string
	KeyBits     int
	BucketSize  int
	Alpha       int
	CallTimeout time.Duration
}

// Default returns a Config with the same defaults node and kbucket use
// internally, suitable as a starting point before flag parsing
// overrides it.
func Default() Config {
	return Config{
		ListenAddr:  "0.0.0.0:9000",
		KeyBits:     160,
		BucketSize:  kbucket.DefaultCapacity,
		Alpha:       node.DefaultAlpha,
		CallTimeout: node.DefaultCallTimeout,
	}
}

// RegisterFlags binds Config's fields onto fs, so a caller can parse
// os.Args into it directly.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "address to listen on, host:port")
	fs.Func("bootstrap", "comma-separated list of host:port bootstrap contacts", func(s string) error {
		c.Bootstrap = splitAndTrim(s)
		return nil
	})
	fs.IntVar(&c.KeyBits, "key-bits", c.KeyBits, "identifier size in bits (validated only; the node always generates a 160-bit key)")
	fs.IntVar(&c.BucketSize, "bucket-size", c.BucketSize, "routing table bucket capacity (k)")
	fs.IntVar(&c.Alpha, "alpha", c.Alpha, "lookup parallelism bound")
	fs.DurationVar(&c.CallTimeout, "call-timeout", c.CallTimeout, "per-call RPC timeout")
}

// Validate checks the config is usable, returning a descriptive error
// naming the first problem found.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.KeyBits <= 0 || c.KeyBits%8 != 0 {
		return fmt.Errorf("config: key-bits must be a positive multiple of 8, got %d", c.KeyBits)
	}
	if c.BucketSize <= 0 {
		return fmt.Errorf("config: bucket-size must be positive, got %d", c.BucketSize)
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("config: alpha must be positive, got %d", c.Alpha)
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
