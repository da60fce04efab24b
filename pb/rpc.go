// Package pb holds the wire messages exchanged over the dog stream protocol.
//
// Encoding is hand-rolled protobuf on top of protowire rather than generated
// code: the message set is small and fixed, and protowire lets us avoid
// carrying a descriptor/reflection dependency just to move a handful of
// bytes and varints.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers, fixed by the wire format.
const (
	txFieldFrom  = 1
	txFieldSeqno = 2
	txFieldData  = 3

	rpcFieldTxs     = 1
	rpcFieldControl = 2

	controlFieldHaveTx     = 1
	controlFieldResetRoute = 2

	haveTxFieldTxID = 1
)

// Tx is a raw transaction as it appears on the wire.
type Tx struct {
	From  []byte
	Seqno uint64
	Data  []byte
}

// HaveTx asks the receiver to stop routing transactions from the origin
// identified (indirectly) by TxID to the sender.
type HaveTx struct {
	TxID []byte
}

// ResetRoute asks the receiver to re-open a previously disabled route to the
// sender. It carries no fields.
type ResetRoute struct{}

// ControlMessage batches the control actions piggybacked on an RPC.
type ControlMessage struct {
	HaveTx     []*HaveTx
	ResetRoute []*ResetRoute
}

// RPC is the single message type sent over a dog stream.
type RPC struct {
	Txs     []*Tx
	Control *ControlMessage
}

// Size returns the encoded length of tx without allocating.
func (m *Tx) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if len(m.From) > 0 {
		n += protowire.SizeTag(txFieldFrom) + protowire.SizeBytes(len(m.From))
	}
	if m.Seqno != 0 {
		n += protowire.SizeTag(txFieldSeqno) + protowire.SizeVarint(m.Seqno)
	}
	if len(m.Data) > 0 {
		n += protowire.SizeTag(txFieldData) + protowire.SizeBytes(len(m.Data))
	}
	return n
}

// Marshal appends the encoded form of m to b and returns the result.
func (m *Tx) Marshal(b []byte) []byte {
	if m == nil {
		return b
	}
	if len(m.From) > 0 {
		b = protowire.AppendTag(b, txFieldFrom, protowire.BytesType)
		b = protowire.AppendBytes(b, m.From)
	}
	if m.Seqno != 0 {
		b = protowire.AppendTag(b, txFieldSeqno, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Seqno)
	}
	if len(m.Data) > 0 {
		b = protowire.AppendTag(b, txFieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Data)
	}
	return b
}

// UnmarshalTx decodes a Tx from b, which must contain exactly one encoded
// message (no surrounding length prefix).
func UnmarshalTx(b []byte) (*Tx, error) {
	m := &Tx{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid tx tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case txFieldFrom:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid tx.from: %w", protowire.ParseError(n))
			}
			m.From = append([]byte(nil), v...)
			b = b[n:]
		case txFieldSeqno:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid tx.seqno: %w", protowire.ParseError(n))
			}
			m.Seqno = v
			b = b[n:]
		case txFieldData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid tx.data: %w", protowire.ParseError(n))
			}
			m.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid tx field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

// Size returns the encoded length of m.
func (m *HaveTx) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if len(m.TxID) > 0 {
		n += protowire.SizeTag(haveTxFieldTxID) + protowire.SizeBytes(len(m.TxID))
	}
	return n
}

// Marshal appends the encoded form of m to b.
func (m *HaveTx) Marshal(b []byte) []byte {
	if m == nil {
		return b
	}
	if len(m.TxID) > 0 {
		b = protowire.AppendTag(b, haveTxFieldTxID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.TxID)
	}
	return b
}

// UnmarshalHaveTx decodes a HaveTx from b.
func UnmarshalHaveTx(b []byte) (*HaveTx, error) {
	m := &HaveTx{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid have_tx tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case haveTxFieldTxID:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid have_tx.tx_id: %w", protowire.ParseError(n))
			}
			m.TxID = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid have_tx field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

// Size returns the encoded length of m. ResetRoute always encodes to zero
// bytes on its own; its presence is signalled by its slot in ControlMessage.
func (m *ResetRoute) Size() int { return 0 }

// Marshal is a no-op: ResetRoute carries no fields.
func (m *ResetRoute) Marshal(b []byte) []byte { return b }

// UnmarshalResetRoute decodes a ResetRoute from b.
func UnmarshalResetRoute(b []byte) (*ResetRoute, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid reset_route tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid reset_route field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return &ResetRoute{}, nil
}

// Size returns the encoded length of m.
func (m *ControlMessage) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, h := range m.HaveTx {
		s := h.Size()
		n += protowire.SizeTag(controlFieldHaveTx) + protowire.SizeBytes(s)
	}
	for _, r := range m.ResetRoute {
		s := r.Size()
		n += protowire.SizeTag(controlFieldResetRoute) + protowire.SizeBytes(s)
	}
	return n
}

// Marshal appends the encoded form of m to b.
func (m *ControlMessage) Marshal(b []byte) []byte {
	if m == nil {
		return b
	}
	for _, h := range m.HaveTx {
		b = protowire.AppendTag(b, controlFieldHaveTx, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(h.Size()))
		b = h.Marshal(b)
	}
	for _, r := range m.ResetRoute {
		b = protowire.AppendTag(b, controlFieldResetRoute, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(r.Size()))
		b = r.Marshal(b)
	}
	return b
}

// UnmarshalControlMessage decodes a ControlMessage from b.
func UnmarshalControlMessage(b []byte) (*ControlMessage, error) {
	m := &ControlMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid control tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case controlFieldHaveTx:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid control.have_tx: %w", protowire.ParseError(n))
			}
			h, err := UnmarshalHaveTx(v)
			if err != nil {
				return nil, err
			}
			m.HaveTx = append(m.HaveTx, h)
			b = b[n:]
		case controlFieldResetRoute:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid control.reset_route: %w", protowire.ParseError(n))
			}
			r, err := UnmarshalResetRoute(v)
			if err != nil {
				return nil, err
			}
			m.ResetRoute = append(m.ResetRoute, r)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid control field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

// Size returns the encoded length of m.
func (m *RPC) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, tx := range m.Txs {
		s := tx.Size()
		n += protowire.SizeTag(rpcFieldTxs) + protowire.SizeBytes(s)
	}
	if m.Control != nil {
		s := m.Control.Size()
		n += protowire.SizeTag(rpcFieldControl) + protowire.SizeBytes(s)
	}
	return n
}

// Marshal encodes m into a freshly allocated byte slice.
func (m *RPC) Marshal() []byte {
	b := make([]byte, 0, m.Size())
	for _, tx := range m.Txs {
		b = protowire.AppendTag(b, rpcFieldTxs, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(tx.Size()))
		b = tx.Marshal(b)
	}
	if m.Control != nil {
		b = protowire.AppendTag(b, rpcFieldControl, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(m.Control.Size()))
		b = m.Control.Marshal(b)
	}
	return b
}

// Unmarshal decodes an RPC from b.
func Unmarshal(b []byte) (*RPC, error) {
	m := &RPC{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("pb: invalid rpc tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case rpcFieldTxs:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid rpc.txs: %w", protowire.ParseError(n))
			}
			tx, err := UnmarshalTx(v)
			if err != nil {
				return nil, err
			}
			m.Txs = append(m.Txs, tx)
			b = b[n:]
		case rpcFieldControl:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid rpc.control: %w", protowire.ParseError(n))
			}
			c, err := UnmarshalControlMessage(v)
			if err != nil {
				return nil, err
			}
			m.Control = c
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("pb: invalid rpc field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}
