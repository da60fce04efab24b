package dog

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/rs/zerolog"
)

// lifecycleKind discriminates connection lifecycle notifications fed into
// the run loop.
type lifecycleKind int

const (
	lifecycleConnected lifecycleKind = iota
	lifecycleDisconnected
)

// lifecycleEvent mirrors the swarm's own
// ConnectionEstablished{peer, connection_id, other_established} /
// ConnectionClosed{peer, connection_id, remaining_established} contract: a
// peer may have several simultaneous connections, and only the transition
// to/from zero live connections drives controller/router bookkeeping.
type lifecycleEvent struct {
	kind  lifecycleKind
	peer  peer.ID
	connID ConnectionId

	otherEstablished     int // valid when kind == lifecycleConnected
	remainingEstablished int // valid when kind == lifecycleDisconnected
}

// publishRequest carries a user Publish call into the run loop, which owns
// the sequence number counter and duplicate filter.
type publishRequest struct {
	data   []byte
	result chan error
}

// Behaviour is the dog protocol engine: it owns the duplicate filter,
// router, per-peer redundancy controllers and outbound queues, and exposes
// Publish plus an Events() channel. All of its internal state (other than
// the connected-peer map, which is also touched by stream-handling
// goroutines to look up a peer's outbound queue) is owned by a single
// run-loop goroutine, the idiomatic Go analogue of the single-threaded
// NetworkBehaviour::poll state machine this protocol was originally built
// around.
type Behaviour struct {
	cfg       Config
	transform DataTransform
	metrics   MetricsRegistry
	log       zerolog.Logger

	host  Host
	local peer.ID

	seqno     *SequenceNumber
	dupFilter *duplicateFilter
	router    *router

	peersMu   sync.Mutex
	connected map[peer.ID]*PeerConnections

	controllers map[peer.ID]*controller

	events     chan Event
	incoming   chan inboundRPC
	lifecycle  chan lifecycleEvent
	publishReq chan publishRequest

	closeOnce sync.Once
	closeCh   chan struct{}
}

// BehaviourOption configures optional Behaviour dependencies.
type BehaviourOption func(*Behaviour)

// WithTransform overrides the default IdentityTransform.
func WithTransform(t DataTransform) BehaviourOption {
	return func(b *Behaviour) { b.transform = t }
}

// WithMetrics overrides the default no-op MetricsRegistry.
func WithMetrics(m MetricsRegistry) BehaviourOption {
	return func(b *Behaviour) { b.metrics = m }
}

// WithLogger overrides the default zerolog.Nop() logger.
func WithLogger(l zerolog.Logger) BehaviourOption {
	return func(b *Behaviour) { b.log = l }
}

// New builds a Behaviour bound to h and starts its run loop. h's local peer
// id is used as the author of published transactions.
func New(h Host, cfg Config, opts ...BehaviourOption) *Behaviour {
	b := &Behaviour{
		cfg:         cfg,
		transform:   IdentityTransform{},
		metrics:     noopMetrics{},
		log:         zerolog.Nop(),
		host:        h,
		local:       h.ID(),
		seqno:       NewSequenceNumber(),
		dupFilter:   newDuplicateFilter(cfg.DuplicateCacheTTL),
		router:      newRouter(),
		connected:   make(map[peer.ID]*PeerConnections),
		controllers: make(map[peer.ID]*controller),
		events:      make(chan Event, 256),
		incoming:    make(chan inboundRPC, 256),
		lifecycle:   make(chan lifecycleEvent, 64),
		publishReq:  make(chan publishRequest),
		closeCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	h.SetStreamHandler(ProtocolID, b.handleIncomingStream)
	h.Network().Notify(&network.NotifyBundle{
		ConnectedF:    b.onConnected,
		DisconnectedF: b.onDisconnected,
	})

	go b.run()
	return b
}

// Events returns the channel on which Transaction and RoutingUpdated events
// are delivered.
func (b *Behaviour) Events() <-chan Event { return b.events }

// Close stops the run loop. It does not close connections; the host remains
// the caller's responsibility.
func (b *Behaviour) Close() {
	b.closeOnce.Do(func() { close(b.closeCh) })
}

// Publish transforms, sizes and sends data as a new transaction authored by
// the local peer to every connected peer.
func (b *Behaviour) Publish(data []byte) error {
	req := publishRequest{data: data, result: make(chan error, 1)}
	select {
	case b.publishReq <- req:
	case <-b.closeCh:
		return &PublishError{Kind: ErrInsufficientPeers}
	}
	return <-req.result
}

// -- libp2p wiring --

func (b *Behaviour) onConnected(_ network.Network, conn network.Conn) {
	remote := conn.RemotePeer()

	b.peersMu.Lock()
	pc, existed := b.connected[remote]
	if !existed {
		pc = &PeerConnections{
			Connections: make(map[network.Conn]ConnectionId),
			Queue:       make(chan queueItem, b.cfg.ConnectionHandlerQueueLen),
		}
		b.connected[remote] = pc
	}
	connID := newConnectionId()
	pc.Connections[conn] = connID
	otherEstablished := len(pc.Connections) - 1
	b.peersMu.Unlock()

	select {
	case b.lifecycle <- lifecycleEvent{kind: lifecycleConnected, peer: remote, connID: connID, otherEstablished: otherEstablished}:
	case <-b.closeCh:
	}

	// Exactly one side of a connection dials the dog stream; the other
	// waits for it in handleIncomingStream. Comparing peer ids gives both
	// sides the same, symmetric answer without any additional negotiation.
	// Only the first connection to a peer needs a dog stream: later,
	// redundant connections to the same peer reuse the existing one.
	if !existed && b.local < remote {
		go b.dialStream(remote, pc.Queue)
	}
}

func (b *Behaviour) onDisconnected(_ network.Network, conn network.Conn) {
	remote := conn.RemotePeer()

	b.peersMu.Lock()
	pc, ok := b.connected[remote]
	if !ok {
		b.peersMu.Unlock()
		return
	}
	connID, tracked := pc.Connections[conn]
	delete(pc.Connections, conn)
	remaining := len(pc.Connections)
	if remaining == 0 {
		delete(b.connected, remote)
		close(pc.Queue)
	}
	b.peersMu.Unlock()

	if !tracked {
		return
	}

	select {
	case b.lifecycle <- lifecycleEvent{kind: lifecycleDisconnected, peer: remote, connID: connID, remainingEstablished: remaining}:
	case <-b.closeCh:
	}
}

func (b *Behaviour) dialStream(p peer.ID, queue chan queueItem) {
	s, err := b.host.NewStream(context.Background(), p, ProtocolID)
	if err != nil {
		b.log.Debug().Err(err).Str("peer", p.String()).Msg("dog: failed to open stream")
		return
	}
	b.startStreamLoops(s, queue)
}

func (b *Behaviour) handleIncomingStream(s network.Stream) {
	remote := s.Conn().RemotePeer()

	// The connection this stream rides on has already gone through
	// onConnected (libp2p establishes the connection before a stream can be
	// opened over it), so the peer's PeerConnections entry always exists by
	// the time a dog stream arrives. A fresh entry is only a defensive
	// fallback in case a stream somehow races ahead of the Notifiee.
	b.peersMu.Lock()
	pc, ok := b.connected[remote]
	if !ok {
		pc = &PeerConnections{
			Connections: make(map[network.Conn]ConnectionId),
			Queue:       make(chan queueItem, b.cfg.ConnectionHandlerQueueLen),
		}
		b.connected[remote] = pc
	}
	b.peersMu.Unlock()

	b.startStreamLoops(s, pc.Queue)
}

func (b *Behaviour) startStreamLoops(s network.Stream, queue chan queueItem) {
	go runInbound(b.log, s, b.cfg.ValidationMode, b.cfg.MaxTransmitSize, b.incoming)
	go runOutbound(b.log, s, queue, b.cfg.MaxTransmitSize, b.cfg.MaxTransactionsPerRPC, b.metrics, b.events)
}

// -- run loop --

func (b *Behaviour) run() {
	ticker := time.NewTicker(b.cfg.RedundancyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.closeCh:
			return
		case ev := <-b.lifecycle:
			b.handleLifecycle(ev)
		case in := <-b.incoming:
			b.handleInboundRPC(in)
		case req := <-b.publishReq:
			req.result <- b.publish(req.data)
		case <-ticker.C:
			b.evaluateRedundancy()
		}
	}
}

func (b *Behaviour) handleLifecycle(ev lifecycleEvent) {
	switch ev.kind {
	case lifecycleConnected:
		if _, ok := b.controllers[ev.peer]; !ok {
			b.controllers[ev.peer] = newController(b.cfg)
		}
	case lifecycleDisconnected:
		// A peer with other live connections is still reachable; only a
		// drop to zero connections resets its routing/controller state and
		// is worth redialing for.
		if ev.remainingEstablished > 0 {
			return
		}
		b.router.resetForPeer(ev.peer)
		delete(b.controllers, ev.peer)

		if b.cfg.ReconnectEnabled {
			go b.reconnect(ev.peer)
		}
	}
}

// reconnect retries dialing p after a full disconnect, backing off between
// attempts the same way exchange.Replication.Dispatch retries a failed
// transfer: an exponentially growing delay between ReconnectBackoffMin and
// ReconnectBackoffMax, capped at ReconnectMaxAttempts. The swarm contract
// permits Dial only for this purpose; it is never called autonomously
// otherwise. A successful dial needs no further action here: it re-enters
// through onConnected like any other inbound or outbound connection.
func (b *Behaviour) reconnect(p peer.ID) {
	bo := &backoff.Backoff{
		Min: b.cfg.ReconnectBackoffMin,
		Max: b.cfg.ReconnectBackoffMax,
	}
	for attempt := 0; attempt < b.cfg.ReconnectMaxAttempts; attempt++ {
		select {
		case <-b.closeCh:
			return
		case <-time.After(bo.Duration()):
		}

		b.peersMu.Lock()
		_, already := b.connected[p]
		b.peersMu.Unlock()
		if already {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.ReconnectBackoffMax)
		err := b.host.Connect(ctx, peer.AddrInfo{ID: p})
		cancel()
		if err == nil {
			return
		}
		b.log.Debug().Err(err).Str("peer", p.String()).Int("attempt", attempt+1).Msg("dog: reconnect attempt failed")
	}
}

func (b *Behaviour) handleInboundRPC(in inboundRPC) {
	for _, tx := range in.rpc.Txs {
		b.onReceive(in.from, tx)
	}
	for _, action := range in.rpc.Control {
		b.onControl(in.from, action)
	}
}

// publish implements §4.6 Publish exactly: transform, size-check, build the
// RawTransaction, self-suppress it in the duplicate filter, then fan it out
// to every connected peer's queue, unfiltered by the router (the router
// only prunes *forwarding*, never a node's own publications).
func (b *Behaviour) publish(data []byte) error {
	transformed, err := b.transform.OutboundTransform(data)
	if err != nil {
		return &PublishError{Kind: ErrTransformFailed, Err: err}
	}
	if len(transformed) > b.cfg.MaxTransmitSize {
		return &PublishError{Kind: ErrTransactionTooLarge}
	}

	tx := RawTransaction{From: b.local, Seqno: b.seqno.Next(), Data: transformed}
	id := newTransactionId(tx)
	if b.dupFilter.insert(id, b.local) {
		return &PublishError{Kind: ErrDuplicate}
	}

	type target struct {
		id peer.ID
		pc *PeerConnections
	}
	b.peersMu.Lock()
	peers := make([]target, 0, len(b.connected))
	for p, pc := range b.connected {
		peers = append(peers, target{id: p, pc: pc})
	}
	b.peersMu.Unlock()

	if len(peers) == 0 {
		return &PublishError{Kind: ErrInsufficientPeers}
	}

	deadline := time.Now().Add(b.cfg.PublishQueueDuration)
	failed := 0
	for _, t := range peers {
		item := queueItem{kind: queuePublish, tx: tx, deadline: deadline}
		select {
		case t.pc.Queue <- item:
		default:
			failed++
			b.reportDropped(t.id, DropQueueFull)
		}
	}
	if failed == len(peers) {
		return &PublishError{Kind: ErrAllQueuesFull, QueuesFull: failed}
	}

	b.metrics.TxSentPublished()
	return nil
}

// onReceive implements §4.6's inbound path: duplicate detection decides
// both whether the user sees the transaction and whether it is forwarded.
// This is the core anti-loop rule: a transaction is only ever forwarded
// along the connection it first arrived on's siblings, once.
func (b *Behaviour) onReceive(from peer.ID, tx RawTransaction) {
	b.metrics.TxRecvUnfiltered()

	// The transform runs before the transaction is ever marked seen: a
	// transform failure must neither pollute the duplicate filter nor move
	// a controller's counters, since the transaction was effectively never
	// received. Wire-level dedup and re-forwarding still key off the
	// original tx, not the transformed payload — every hop applies its own
	// InboundTransform independently for its own user-facing event, and
	// the id must stay stable across hops regardless of what any one hop's
	// transform does to the bytes.
	transformed, err := b.transform.InboundTransform(tx.Data)
	if err != nil {
		b.log.Debug().Err(err).Msg("dog: inbound transform failed, dropping transaction")
		return
	}

	id := newTransactionId(tx)
	isDuplicate := b.dupFilter.insert(id, tx.From)

	ctrl := b.controllers[from]
	if ctrl != nil {
		if isDuplicate {
			ctrl.recordDuplicate(id)
		} else {
			ctrl.recordFirstTime()
		}
	}

	if isDuplicate {
		return
	}

	b.metrics.TxRecv(len(transformed))
	b.events <- Event{
		Kind:              EventTransaction,
		PropagationSource: from,
		TransactionId:     id,
		Transaction:       Transaction{From: tx.From, Seqno: tx.Seqno, Data: transformed},
	}

	if b.cfg.ForwardTransactions {
		b.forward(tx, from)
	}
}

// forward enqueues tx to every connected peer other than from, minus
// whatever the router has pruned for tx's origin. An empty candidate set is
// allowed: a leaf node simply has nothing to forward to.
func (b *Behaviour) forward(tx RawTransaction, from peer.ID) {
	b.peersMu.Lock()
	candidates := make([]peer.ID, 0, len(b.connected))
	queues := make(map[peer.ID]chan queueItem, len(b.connected))
	for p, pc := range b.connected {
		if p == from {
			continue
		}
		candidates = append(candidates, p)
		queues[p] = pc.Queue
	}
	b.peersMu.Unlock()

	targets := b.router.filterTargets(tx.From, candidates)
	if len(targets) == 0 {
		return
	}

	deadline := time.Now().Add(b.cfg.ForwardQueueDuration)
	item := queueItem{kind: queueForward, tx: tx, deadline: deadline}
	for _, p := range targets {
		select {
		case queues[p] <- item:
		default:
			b.log.Debug().Str("peer", p.String()).Msg("dog: forward queue full, dropping")
			b.reportDropped(p, DropQueueFull)
		}
	}
}

// reportDropped records a queue-full drop for peer p via both the metrics
// registry and a best-effort event: this is advisory, lossy signalling and
// must never risk blocking the run loop it is called from.
func (b *Behaviour) reportDropped(p peer.ID, reason DropReason) {
	b.metrics.TxDropped(reason)
	select {
	case b.events <- Event{Kind: EventTransactionDropped, DroppedPeer: p, DroppedReason: reason}:
	default:
	}
}

// onControl implements §4.6's control handling: a HAVE_TX from a peer
// disables forwarding of its cited transaction's origin towards that peer;
// a RESET_ROUTE re-opens one previously disabled route towards that peer.
func (b *Behaviour) onControl(from peer.ID, action ControlAction) {
	switch {
	case action.HaveTx != nil:
		origin, ok := b.dupFilter.originOf(action.HaveTx.TxID)
		if !ok {
			b.log.Debug().Str("peer", from.String()).Msg("dog: HAVE_TX for unknown transaction id, ignoring")
			return
		}
		b.router.disable(origin, from)
		b.events <- Event{Kind: EventRoutingUpdated, Route: Route{Source: origin, Target: from}, Disabled: true}

	case action.ResetRoute != nil:
		route, ok := b.router.enableRandomForTarget(from)
		if ok {
			b.events <- Event{Kind: EventRoutingUpdated, Route: route, Disabled: false}
		}
	}
}

// evaluateRedundancy runs the periodic per-peer controller tick, queuing a
// HAVE_TX or RESET_ROUTE to any peer whose counters crossed a threshold.
func (b *Behaviour) evaluateRedundancy() {
	for p, ctrl := range b.controllers {
		action, cited := ctrl.evaluate()
		if action == actionNone {
			continue
		}

		b.peersMu.Lock()
		pc, ok := b.connected[p]
		b.peersMu.Unlock()
		if !ok {
			continue
		}

		var item queueItem
		switch action {
		case actionSendHaveTx:
			item = queueItem{kind: queueHaveTx, haveTx: HaveTx{TxID: cited}}
		case actionSendResetRoute:
			item = queueItem{kind: queueResetRoute}
		}

		select {
		case pc.Queue <- item:
		default:
			b.log.Debug().Str("peer", p.String()).Msg("dog: control queue full, dropping")
			b.reportDropped(p, DropQueueFull)
		}
	}
}
