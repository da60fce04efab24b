package dog

import (
	"math/rand"
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
)

// router tracks disabled routes: (source, target) pairs along which
// transactions originating from source should no longer be forwarded to
// target. The router itself does not know about connectivity: the
// behaviour calls resetForPeer once a peer's last connection closes.
type router struct {
	mu     sync.Mutex
	routes []Route
	rnd    *rand.Rand
}

func newRouter() *router {
	return &router{rnd: rand.New(rand.NewSource(rand.Int63()))}
}

// disable adds a disabled route. Disabling an already-disabled route is
// allowed and simply records a second entry; filterTargets and
// enableRandomForTarget treat duplicates correctly (disabled-ness is a
// membership test, not a count), but reset_for_peer must remove every
// matching entry, not just one.
func (r *router) disable(source, target peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, Route{Source: source, Target: target})
}

// enableRandomForTarget removes one uniformly-random disabled route whose
// Target is target, returning it. It reports false if target has no
// disabled routes.
func (r *router) enableRandomForTarget(target peer.ID) (Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []int
	for i, rt := range r.routes {
		if rt.Target == target {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return Route{}, false
	}
	idx := candidates[r.rnd.Intn(len(candidates))]
	removed := r.routes[idx]
	// Drop every entry equal to the chosen route, so a route disabled more
	// than once is actually re-enabled.
	kept := r.routes[:0]
	for _, rt := range r.routes {
		if rt != removed {
			kept = append(kept, rt)
		}
	}
	r.routes = kept
	return removed, true
}

// resetForPeer drops every disabled route mentioning peer as either source
// or target. It is called when a peer fully disconnects.
func (r *router) resetForPeer(p peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.routes[:0]
	for _, rt := range r.routes {
		if rt.Source == p || rt.Target == p {
			continue
		}
		kept = append(kept, rt)
	}
	r.routes = kept
}

// filterTargets returns the subset of candidates that do not have a
// disabled route from source.
func (r *router) filterTargets(source peer.ID, candidates []peer.ID) []peer.ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.routes) == 0 {
		return candidates
	}
	disabled := make(map[peer.ID]struct{})
	for _, rt := range r.routes {
		if rt.Source == source {
			disabled[rt.Target] = struct{}{}
		}
	}
	if len(disabled) == 0 {
		return candidates
	}
	out := make([]peer.ID, 0, len(candidates))
	for _, c := range candidates {
		if _, blocked := disabled[c]; !blocked {
			out = append(out, c)
		}
	}
	return out
}
