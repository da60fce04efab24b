package dog

import (
	"time"

	"github.com/informalsystems/libp2p-dog/pb"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	msgio "github.com/libp2p/go-msgio"
	"github.com/rs/zerolog"
)

// inboundRPC is handed from a connection's read loop to the behaviour's run
// loop.
type inboundRPC struct {
	from peer.ID
	rpc  decodedRPC
}

// expired reports whether item's deadline, if any, has already passed.
func expired(item queueItem) bool {
	return !item.deadline.IsZero() && time.Now().After(item.deadline)
}

// runOutbound drains queue onto stream until the stream or queue is closed.
// Items whose deadline has already passed are abandoned and reported via
// metrics and events rather than only logged. Consecutive Publish/Forward
// entries are coalesced into a single RPC, up to maxBatch transactions (0
// means unbounded) — a single connection's queue batches under load the
// same way the reference connection handler this protocol is modeled on
// does. HaveTx/ResetRoute entries are always sent on their own.
func runOutbound(log zerolog.Logger, s network.Stream, queue <-chan queueItem, maxSize, maxBatch int, metrics MetricsRegistry, events chan<- Event) {
	w := msgio.NewVarintWriter(s)
	defer s.Close()
	remote := s.Conn().RemotePeer()

	report := func(reason DropReason) {
		metrics.TxDropped(reason)
		select {
		case events <- Event{Kind: EventTransactionDropped, DroppedPeer: remote, DroppedReason: reason}:
		default:
		}
	}
	dropExpired := func() {
		log.Debug().Str("peer", remote.String()).Msg("dog: dropping expired outbound queue item")
		report(DropExpired)
	}

	var carry *queueItem
	for {
		var item queueItem
		if carry != nil {
			item, carry = *carry, nil
		} else {
			next, ok := <-queue
			if !ok {
				return
			}
			item = next
		}
		if expired(item) {
			dropExpired()
			continue
		}

		var rpc *pb.RPC
		switch item.kind {
		case queuePublish, queueForward:
			batch := []RawTransaction{item.tx}
		batching:
			for maxBatch <= 0 || len(batch) < maxBatch {
				select {
				case next, ok := <-queue:
					if !ok {
						break batching
					}
					if expired(next) {
						dropExpired()
						continue
					}
					if next.kind != queuePublish && next.kind != queueForward {
						carry = &next
						break batching
					}
					batch = append(batch, next.tx)
				default:
					break batching
				}
			}
			rpc = encodeRPC(batch, nil)
		case queueHaveTx:
			rpc = encodeRPC(nil, []ControlAction{{HaveTx: &item.haveTx}})
		case queueResetRoute:
			rpc = encodeRPC(nil, []ControlAction{{ResetRoute: &ResetRoute{}}})
		}

		if err := writeRPC(w, rpc, maxSize); err != nil {
			log.Debug().Err(err).Msg("dog: outbound write failed, closing stream")
			return
		}
		metrics.TxsSent(len(rpc.Txs), len(rpc.Marshal()))
	}
}

// runInbound reads framed RPCs off s until it errors or closes, decoding
// each and pushing it onto incoming tagged with the remote peer.
func runInbound(log zerolog.Logger, s network.Stream, mode ValidationMode, maxSize int, incoming chan<- inboundRPC) {
	remote := s.Conn().RemotePeer()
	r := msgio.NewVarintReaderSize(s, maxSize)
	for {
		raw, err := readRPC(r, maxSize)
		if err != nil {
			log.Debug().Err(err).Str("peer", remote.String()).Msg("dog: inbound stream closed")
			return
		}
		incoming <- inboundRPC{from: remote, rpc: decodeRPC(mode, raw)}
	}
}
