package dog

import "github.com/libp2p/go-libp2p-core/peer"

// EventKind discriminates the variants of Event.
type EventKind int

const (
	// EventTransaction is emitted the first time a transaction received
	// from a peer is observed. Locally published transactions produce no
	// event.
	EventTransaction EventKind = iota
	// EventRoutingUpdated is emitted whenever the router's disabled-route
	// set changes as a result of processing an inbound control message.
	EventRoutingUpdated
	// EventTransactionDropped is emitted when an outbound queue item is
	// abandoned instead of reaching the wire. It is best-effort: the event
	// is skipped if the events channel is full at that moment.
	EventTransactionDropped
)

// DropReason explains why an outbound queue entry never reached the wire.
type DropReason int

const (
	// DropQueueFull means the peer's bounded outbound queue had no room
	// left when the item was enqueued.
	DropQueueFull DropReason = iota
	// DropExpired means the item's deadline passed before a connection
	// handler got to it.
	DropExpired
)

// String renders the reason the way metrics label values and log fields do.
func (r DropReason) String() string {
	switch r {
	case DropQueueFull:
		return "queue_full"
	case DropExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is delivered on Behaviour.Events() for every user-visible occurrence
// the protocol produces.
type Event struct {
	Kind EventKind

	// Populated when Kind == EventTransaction.
	PropagationSource peer.ID
	TransactionId     TransactionId
	Transaction       Transaction

	// Populated when Kind == EventRoutingUpdated.
	Route    Route
	Disabled bool // true if Route was disabled, false if it was re-enabled

	// Populated when Kind == EventTransactionDropped.
	DroppedPeer   peer.ID
	DroppedReason DropReason
}
