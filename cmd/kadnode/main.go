// Command kadnode runs a single Kademlia DHT node over QUIC. Grounded on
// the teacher's main.go (build a host, start listening, print identity,
// run forever), generalized from the Host facade to this module's
// smaller Node/Fabric pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"kadcore/config"
	"kadcore/key"
	"kadcore/netquic"
	"kadcore/node"
	"kadcore/peer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kadnode:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("kadnode: build logger: %w", err)
	}
	defer log.Sync()

	fabric, err := netquic.Listen(cfg.ListenAddr, log)
	if err != nil {
		return fmt.Errorf("kadnode: listen: %w", err)
	}
	defer fabric.Close()

	host, port, err := splitHostPort(fabric.LocalAddr())
	if err != nil {
		return fmt.Errorf("kadnode: local addr: %w", err)
	}
	n, err := node.Start(fabric, host, port, node.Options{
		BucketSize:  cfg.BucketSize,
		Alpha:       cfg.Alpha,
		CallTimeout: cfg.CallTimeout,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("kadnode: start node: %w", err)
	}
	defer n.Close()

	log.Info("node started",
		zap.String("key", n.Self().Key.String()),
		zap.String("addr", fabric.LocalAddr()),
	)

	if len(cfg.Bootstrap) > 0 {
		contacts := make([]peer.Peer, 0, len(cfg.Bootstrap))
		for _, addr := range cfg.Bootstrap {
			ip, port, err := splitHostPort(addr)
			if err != nil {
				log.Warn("skipping malformed bootstrap address", zap.String("addr", addr), zap.Error(err))
				continue
			}
			// The contact's real key is unknown until it replies; learn()
			// fills in the correct routing-table entry once it does.
			contacts = append(contacts, peer.New(key.Key{}, ip, port))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := n.Bootstrap(ctx, contacts...)
		cancel()
		if err != nil {
			log.Warn("bootstrap did not fully converge", zap.Error(err))
		}
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		log.Info("routing table", zap.Int("peer_count", n.PeerCount()))
	}
	return nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
