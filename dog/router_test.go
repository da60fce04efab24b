package dog

import (
	"testing"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/require"
)

func TestRouterDisableAndFilter(t *testing.T) {
	r := newRouter()
	a, b, c := peer.ID("a"), peer.ID("b"), peer.ID("c")

	r.disable(a, b)

	got := r.filterTargets(a, []peer.ID{b, c})
	require.Equal(t, []peer.ID{c}, got)

	got = r.filterTargets(b, []peer.ID{a, c})
	require.Equal(t, []peer.ID{a, c}, got)
}

func TestRouterEnableRandomForTarget(t *testing.T) {
	r := newRouter()
	a, b, target := peer.ID("a"), peer.ID("b"), peer.ID("target")

	_, ok := r.enableRandomForTarget(target)
	require.False(t, ok)

	r.disable(a, target)
	r.disable(b, target)

	first, ok := r.enableRandomForTarget(target)
	require.True(t, ok)
	require.Equal(t, target, first.Target)

	second, ok := r.enableRandomForTarget(target)
	require.True(t, ok)
	require.NotEqual(t, first.Source, second.Source)

	_, ok = r.enableRandomForTarget(target)
	require.False(t, ok)
}

func TestRouterResetForPeer(t *testing.T) {
	r := newRouter()
	a, b, c := peer.ID("a"), peer.ID("b"), peer.ID("c")

	r.disable(a, b)
	r.disable(b, c)
	r.disable(c, a)

	r.resetForPeer(b)

	require.Equal(t, []peer.ID{a, c}, r.filterTargets(a, []peer.ID{a, c})) // a->b gone, untouched set unaffected
	_, ok := r.enableRandomForTarget(c)
	require.False(t, ok) // b->c removed by reset
	_, ok = r.enableRandomForTarget(a)
	require.True(t, ok) // c->a untouched
}
