package dog

import (
	"io"
	"math/rand"

	"github.com/informalsystems/libp2p-dog/pb"
	"github.com/libp2p/go-libp2p-core/peer"
	msgio "github.com/libp2p/go-msgio"
)

// ProtocolID is the stream protocol this node speaks.
const ProtocolID = "/dog/1.0.0"

// decodeRPC turns a wire pb.RPC into its dog-domain representation. Invalid
// peer ids do not abort the frame: per transaction, a parse failure is
// recorded in Invalid and the transaction dropped from Txs, exactly as one
// malformed entry in a batch should not cost the whole batch.
//
// Control actions are always returned in the order HaveTx-then-ResetRoute,
// matching the wire layout (ControlMessage keeps them in separate lists).
type decodedRPC struct {
	Txs     []RawTransaction
	Invalid []*ValidationError
	Control []ControlAction
}

func decodeRPC(mode ValidationMode, raw *pb.RPC) decodedRPC {
	out := decodedRPC{}
	for _, tx := range raw.Txs {
		from, err := peer.IDFromBytes(tx.From)
		if err != nil {
			switch mode {
			case ValidationNone:
				from = randomPeerID()
			default:
				out.Invalid = append(out.Invalid, &ValidationError{Kind: ErrInvalidPeerID})
				continue
			}
		}
		out.Txs = append(out.Txs, RawTransaction{From: from, Seqno: tx.Seqno, Data: tx.Data})
	}
	if raw.Control != nil {
		for _, h := range raw.Control.HaveTx {
			out.Control = append(out.Control, ControlAction{HaveTx: &HaveTx{TxID: TransactionId(h.TxID)}})
		}
		for range raw.Control.ResetRoute {
			out.Control = append(out.Control, ControlAction{ResetRoute: &ResetRoute{}})
		}
	}
	return out
}

// randomPeerID is only used under ValidationNone, a debug-only mode that
// tolerates malformed peer ids by substituting a random identity instead of
// dropping the transaction. It must never be reached with ValidationStrict,
// the default.
func randomPeerID() peer.ID {
	b := make([]byte, 16)
	rand.Read(b)
	return peer.ID(b)
}

// encodeRPC builds the wire pb.RPC for a batch of outbound transactions and
// control actions.
func encodeRPC(txs []RawTransaction, control []ControlAction) *pb.RPC {
	out := &pb.RPC{}
	for _, tx := range txs {
		out.Txs = append(out.Txs, &pb.Tx{From: []byte(tx.From), Seqno: tx.Seqno, Data: tx.Data})
	}
	if len(control) > 0 {
		cm := &pb.ControlMessage{}
		for _, c := range control {
			if c.HaveTx != nil {
				cm.HaveTx = append(cm.HaveTx, &pb.HaveTx{TxID: []byte(c.HaveTx.TxID)})
			}
			if c.ResetRoute != nil {
				cm.ResetRoute = append(cm.ResetRoute, &pb.ResetRoute{})
			}
		}
		out.Control = cm
	}
	return out
}

// writeRPC frames and writes rpc to w, enforcing maxSize on the encoded
// message.
func writeRPC(w msgio.Writer, rpc *pb.RPC, maxSize int) error {
	b := rpc.Marshal()
	if len(b) > maxSize {
		return io.ErrShortBuffer
	}
	return w.WriteMsg(b)
}

// readRPC reads and decodes a single framed RPC from r, enforcing maxSize.
func readRPC(r msgio.Reader, maxSize int) (*pb.RPC, error) {
	b, err := r.ReadMsg()
	if err != nil {
		return nil, err
	}
	defer r.ReleaseMsg(b)
	if len(b) > maxSize {
		return nil, io.ErrShortBuffer
	}
	return pb.Unmarshal(b)
}
