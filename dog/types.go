package dog

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
)

// TransactionId is an opaque, deterministic identifier derived from a
// transaction's origin, sequence number and payload. Being a byte slice it
// is not comparable; key converts it to a string usable as a map key.
type TransactionId []byte

// String renders the id as hex, the way logs refer to it.
func (id TransactionId) String() string {
	return fmt.Sprintf("%x", []byte(id))
}

// key returns a comparable representation suitable for map keys.
func (id TransactionId) key() string { return string(id) }

// newTransactionId derives a TransactionId deterministically from the raw
// transaction's origin, sequence number and payload. Two RawTransactions
// with identical fields always produce identical ids, which is the property
// the duplicate filter and HAVE_TX plumbing depend on.
func newTransactionId(tx RawTransaction) TransactionId {
	h := sha256.New()
	h.Write([]byte(tx.From))
	var seqno [8]byte
	binary.BigEndian.PutUint64(seqno[:], tx.Seqno)
	h.Write(seqno[:])
	h.Write(tx.Data)
	return h.Sum(nil)
}

// ConnectionId identifies a single connection to a peer. A peer may have
// several live connections at once; dog addresses the transport's swarm
// connection ids indirectly through this type since go-libp2p-core does not
// expose its internal connection identifiers to protocol implementations.
type ConnectionId string

// newConnectionId returns a fresh, unique ConnectionId.
func newConnectionId() ConnectionId {
	return ConnectionId(uuid.New().String())
}

// RawTransaction is a transaction as received from, or about to be sent to,
// the wire: origin, sequence number and raw (possibly transformed) payload.
type RawTransaction struct {
	From  peer.ID
	Seqno uint64
	Data  []byte
}

// Transaction is a RawTransaction after DataTransform.InboundTransform has
// been applied, handed to the user on the events channel.
type Transaction struct {
	From  peer.ID
	Seqno uint64
	Data  []byte
}

// Route is a unidirectional suppression pair: target no longer wants
// transactions originating from source forwarded to it.
type Route struct {
	Source peer.ID
	Target peer.ID
}

// HaveTx is the inbound/outbound representation of a HAVE_TX control
// message: "stop routing the origin of this transaction to me."
type HaveTx struct {
	TxID TransactionId
}

// ResetRoute is the inbound/outbound representation of a RESET_ROUTE control
// message: "re-open a route you previously closed to me."
type ResetRoute struct{}

// ControlAction is either a HaveTx or a ResetRoute message received from a
// peer.
type ControlAction struct {
	HaveTx     *HaveTx
	ResetRoute *ResetRoute
}

// Author identifies the local node as the origin of transactions it
// publishes. Only the plain peer-id variant is implemented: a Signed variant
// analogous to libp2p's message-signing policy was present but unused in
// the reference implementation this protocol is modeled on, and nothing in
// this repo exercises signatures yet.
type Author struct {
	PeerID peer.ID
}

// SequenceNumber is a locally monotonic counter seeded from the wall clock
// so that restarts are exceedingly unlikely to reuse a sequence number a
// peer has already observed.
type SequenceNumber struct {
	v uint64
}

// NewSequenceNumber seeds a SequenceNumber from the current time.
func NewSequenceNumber() *SequenceNumber {
	return &SequenceNumber{v: uint64(time.Now().UnixNano())}
}

// Next atomically increments and returns the next sequence number.
func (s *SequenceNumber) Next() uint64 {
	return atomic.AddUint64(&s.v, 1)
}

// PeerConnections tracks the live connections to a peer and the outbound
// queue shared by all of them. Connections is keyed by the concrete
// network.Conn so a later disconnect notification (which only ever carries
// the connection that closed, not an id we chose) can look up and drop
// exactly that entry, mirroring the swarm's own
// ConnectionEstablished{other_established} / ConnectionClosed{remaining_established}
// contract rather than only tracking the peer as a whole.
type PeerConnections struct {
	Connections map[network.Conn]ConnectionId
	Queue       chan queueItem
}

// queueItemKind discriminates outbound queue entries.
type queueItemKind int

const (
	queuePublish queueItemKind = iota
	queueForward
	queueHaveTx
	queueResetRoute
)

// queueItem is a single entry in a peer's outbound queue. tx is populated
// for Publish/Forward; haveTx for HaveTx. deadline is the time after which
// the item is abandoned rather than sent.
type queueItem struct {
	kind     queueItemKind
	tx       RawTransaction
	haveTx   HaveTx
	deadline time.Time
}
