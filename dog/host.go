package dog

import (
	"context"

	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/protocol"
)

// Host is the subset of a libp2p host.Host the behaviour actually calls:
// stream protocol registration, connection notification, stream dialing,
// reconnection dialing, and local identity. A real host.Host satisfies this
// directly (every method below has the identical signature), so transport's
// go-libp2p host needs no adapter. Keeping it narrow rather than taking a
// host.Host parameter everywhere mirrors how go-libp2p-pubsub separates its
// router implementations from the concrete host it is attached to.
type Host interface {
	ID() peer.ID
	Network() network.Network
	SetStreamHandler(pid protocol.ID, handler network.StreamHandler)
	NewStream(ctx context.Context, p peer.ID, pids ...protocol.ID) (network.Stream, error)
	// Connect is used only for peer reconnection after a full disconnect,
	// never dialed autonomously otherwise.
	Connect(ctx context.Context, pi peer.AddrInfo) error
}
