// Package transport builds the libp2p host a dog.Behaviour attaches to. It
// is adapted from node/popn.go's libp2p.New option list in the myelnet
// teacher repo, stripped of everything specific to Filecoin/IPFS storage
// (datastore, blockstore, DAG service, DHT content routing) and kept to
// what a gossip protocol actually needs: identity, connection limits, NAT
// traversal, and optional DHT-based peer routing for bootstrapping.
package transport

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/libp2p/go-libp2p"
	connmgr "github.com/libp2p/go-libp2p-connmgr"
	"github.com/libp2p/go-libp2p-core/crypto"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/routing"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/multiformats/go-multiaddr"
	"github.com/rs/zerolog/log"
)

// Options configures the libp2p host a node runs dog over.
type Options struct {
	// ListenAddrs are the multiaddrs to listen on. If empty, libp2p picks a
	// random TCP port on all interfaces.
	ListenAddrs []string
	// PrivKey is the node's identity key. If nil, a fresh Ed25519 key is
	// generated.
	PrivKey crypto.PrivKey
	// BootstrapPeers are dialed once the host is up, to seed the DHT (and
	// therefore peer discovery) if EnableDHT is set.
	BootstrapPeers []string
	// EnableDHT turns on Kademlia-based peer routing, the same
	// go-libp2p-kad-dht integration node/popn.go wires up via
	// libp2p.Routing.
	EnableDHT bool
	// LowWater/HighWater/GracePeriod configure the connection manager that
	// trims excess connections, as node/popn.go does with a fixed
	// (20, 60, 20s) triple; here they are left to the caller.
	LowWater    int
	HighWater   int
	GracePeriod time.Duration
}

// DefaultOptions mirrors the connection manager bounds node/popn.go hard
// coded.
func DefaultOptions() Options {
	return Options{
		LowWater:    20,
		HighWater:   60,
		GracePeriod: 20 * time.Second,
	}
}

// NewHost constructs and starts a libp2p host per opts.
func NewHost(ctx context.Context, opts Options) (host.Host, error) {
	priv := opts.PrivKey
	if priv == nil {
		var err error
		priv, _, err = crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return nil, err
		}
	}

	listenAddrs := make([]multiaddr.Multiaddr, 0, len(opts.ListenAddrs))
	for _, a := range opts.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(a)
		if err != nil {
			return nil, err
		}
		listenAddrs = append(listenAddrs, ma)
	}

	cm := connmgr.NewConnManager(opts.LowWater, opts.HighWater, opts.GracePeriod)

	libp2pOpts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.ConnectionManager(cm),
		libp2p.NATPortMap(),
		libp2p.EnableNATService(),
	}
	if len(listenAddrs) > 0 {
		libp2pOpts = append(libp2pOpts, libp2p.ListenAddrs(listenAddrs...))
	}

	var kad *dht.IpfsDHT
	if opts.EnableDHT {
		libp2pOpts = append(libp2pOpts, libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			var err error
			kad, err = dht.New(ctx, h)
			return kad, err
		}))
	}

	h, err := libp2p.New(ctx, libp2pOpts...)
	if err != nil {
		return nil, err
	}

	if opts.EnableDHT && kad != nil {
		if err := kad.Bootstrap(ctx); err != nil {
			log.Warn().Err(err).Msg("transport: DHT bootstrap failed")
		}
	}

	for _, addr := range opts.BootstrapPeers {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("transport: invalid bootstrap address")
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("transport: invalid bootstrap peer info")
			continue
		}
		if err := h.Connect(ctx, *info); err != nil {
			log.Warn().Err(err).Str("peer", info.ID.String()).Msg("transport: failed to connect to bootstrap peer")
		}
	}

	return h, nil
}
