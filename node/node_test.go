package node_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kadcore/key"
	"kadcore/memfabric"
	"kadcore/node"
)

func startNode(t *testing.T, sw *memfabric.Switch, addr string, bits int) *node.Node {
	t.Helper()
	return startNodeWithTimeout(t, sw, addr, bits, 0)
}

func startNodeWithTimeout(t *testing.T, sw *memfabric.Switch, addr string, bits int, callTimeout time.Duration) *node.Node {
	t.Helper()
	k, err := key.Random(bits)
	require.NoError(t, err)

	fab := sw.NewFabric(addr)
	ip, _ := splitAddr(addr)
	n, err := node.Start(fab, ip, portOf(addr), node.Options{
		Key:         &k,
		BucketSize:  20,
		Alpha:       3,
		CallTimeout: callTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n
}

func splitAddr(addr string) (string, string) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:]
		}
	}
	return addr, ""
}

func portOf(addr string) int {
	_, p := splitAddr(addr)
	n := 0
	for _, c := range p {
		n = n*10 + int(c-'0')
	}
	return n
}

func TestSingleNodeBootstrap(t *testing.T) {
	sw := memfabric.NewSwitch(0)
	master := startNode(t, sw, "master:9000", 64)
	n := startNode(t, sw, "n:9001", 64)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, n.Bootstrap(ctx, master.Self()))

	require.Equal(t, 1, n.PeerCount())
	require.Equal(t, 1, master.PeerCount())
}

func TestThreeHundredNodeBootstrap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large bootstrap under -short")
	}

	sw := memfabric.NewSwitch(0)
	master := startNode(t, sw, "master:9000", 64)

	var others []*node.Node
	for i := 0; i < 300; i++ {
		addr := fmt.Sprintf("n%d:%d", i, 10000+i)
		others = append(others, startNode(t, sw, addr, 64))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, n := range others {
		require.NoError(t, n.Bootstrap(ctx, master.Self()))
	}

	require.Greater(t, master.PeerCount(), 1)
	require.LessOrEqual(t, master.PeerCount(), 160*20)

	counts := make([]int, 0, len(others))
	for _, n := range others {
		require.GreaterOrEqual(t, n.PeerCount(), 1)
		counts = append(counts, n.PeerCount())
	}
	sort.Ints(counts)
	require.True(t, sort.IntsAreSorted(counts))
}

func TestMessageLossResilience(t *testing.T) {
	sw := memfabric.NewSwitch(0.1)
	const callTimeout = 200 * time.Millisecond
	master := startNodeWithTimeout(t, sw, "master:9000", 64, callTimeout)

	var others []*node.Node
	for i := 0; i < 20; i++ {
		addr := fmt.Sprintf("n%d:%d", i, 11000+i)
		others = append(others, startNodeWithTimeout(t, sw, addr, 64, callTimeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, n := range others {
		// Bootstrap never hangs even with loss: timeouts bound every call.
		_ = n.Bootstrap(ctx, master.Self())
	}

	require.Greater(t, master.PeerCount(), 0)
}
