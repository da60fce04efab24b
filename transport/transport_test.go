package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHostDefaultOptions(t *testing.T) {
	ctx := context.Background()
	h, err := NewHost(ctx, DefaultOptions())
	require.NoError(t, err)
	defer h.Close()

	require.NotEmpty(t, h.ID())
	require.NotEmpty(t, h.Addrs())
}

func TestNewHostTwoPeersCanConnect(t *testing.T) {
	ctx := context.Background()
	a, err := NewHost(ctx, DefaultOptions())
	require.NoError(t, err)
	defer a.Close()

	b, err := NewHost(ctx, DefaultOptions())
	require.NoError(t, err)
	defer b.Close()

	bInfo := b.Peerstore().PeerInfo(b.ID())
	bInfo.Addrs = b.Addrs()

	require.NoError(t, a.Connect(ctx, bInfo))
	require.NotEmpty(t, a.Network().ConnsToPeer(b.ID()))
}
