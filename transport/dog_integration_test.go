package transport

import (
	"context"
	"testing"
	"time"

	"github.com/informalsystems/libp2p-dog/dog"
	"github.com/stretchr/testify/require"
)

// TestPublishDeliversOverRealStream is the S1-style end-to-end check: two
// real libp2p hosts, a live connection, one Publish, and confirmation the
// transaction arrives on the other side's Events channel through the actual
// wire codec (msgio framing + protowire-encoded pb.RPC), not just through
// in-process method calls.
func TestPublishDeliversOverRealStream(t *testing.T) {
	ctx := context.Background()

	hostA, err := NewHost(ctx, DefaultOptions())
	require.NoError(t, err)
	defer hostA.Close()

	hostB, err := NewHost(ctx, DefaultOptions())
	require.NoError(t, err)
	defer hostB.Close()

	// Behaviours must exist before the hosts connect: New registers a
	// Notifiee, and libp2p only delivers connection notifications for
	// connections established after registration, never retroactively.
	cfg := dog.DefaultConfig()
	behA := dog.New(hostA, cfg)
	defer behA.Close()
	behB := dog.New(hostB, cfg)
	defer behB.Close()

	bInfo := hostB.Peerstore().PeerInfo(hostB.ID())
	bInfo.Addrs = hostB.Addrs()
	require.NoError(t, hostA.Connect(ctx, bInfo))

	// Give the stream negotiation (whichever side dials, per peer id
	// ordering) a moment to complete before publishing.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, behA.Publish([]byte("hello from A")))

	select {
	case ev := <-behB.Events():
		require.Equal(t, dog.EventTransaction, ev.Kind)
		require.Equal(t, hostA.ID(), ev.Transaction.From)
		require.Equal(t, []byte("hello from A"), ev.Transaction.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("hostB never received the published transaction")
	}
}
