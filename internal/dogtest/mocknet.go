// Package dogtest provides small helpers for wiring up in-memory libp2p
// hosts in tests, grounded on the mocknet-based setup in
// exchange/replication_test.go from the retrieval pack's myelnet teacher
// (whose own internal/testutil helper package was not part of the
// retrieved file slice, hence this fresh adaptation of the same pattern).
package dogtest

import (
	"context"
	"testing"

	"github.com/libp2p/go-libp2p-core/host"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/require"
)

// NewMesh builds n in-memory libp2p hosts, links every pair (so dialing
// works) without connecting them yet, and returns them in creation order.
func NewMesh(t *testing.T, n int) []host.Host {
	t.Helper()
	mn := mocknet.New(context.Background())

	hosts := make([]host.Host, n)
	for i := 0; i < n; i++ {
		h, err := mn.GenPeer()
		require.NoError(t, err)
		hosts[i] = h
	}
	require.NoError(t, mn.LinkAll())

	t.Cleanup(func() {
		for _, h := range hosts {
			_ = h.Close()
		}
	})

	return hosts
}

// Connect opens a live connection from a to b (and, since libp2p
// connections are bidirectional, implicitly from b to a).
func Connect(t *testing.T, a, b host.Host) {
	t.Helper()
	err := a.Connect(context.Background(), *host.InfoFromHost(b))
	require.NoError(t, err)
}
