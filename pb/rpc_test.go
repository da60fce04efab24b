package pb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRPCRoundTrip(t *testing.T) {
	cases := []*RPC{
		{},
		{
			Txs: []*Tx{
				{From: []byte("peer-a"), Seqno: 1, Data: []byte("hello")},
				{From: []byte("peer-b"), Seqno: 42, Data: []byte{}},
			},
		},
		{
			Control: &ControlMessage{
				HaveTx: []*HaveTx{
					{TxID: []byte("tx-1")},
					{TxID: []byte("tx-2")},
				},
				ResetRoute: []*ResetRoute{{}},
			},
		},
		{
			Txs: []*Tx{{From: []byte("peer-c"), Seqno: 7, Data: []byte("data")}},
			Control: &ControlMessage{
				HaveTx:     []*HaveTx{{TxID: []byte("tx-3")}},
				ResetRoute: []*ResetRoute{{}, {}},
			},
		},
	}

	for _, want := range cases {
		b := want.Marshal()
		require.Equal(t, len(b), want.Size())

		got, err := Unmarshal(b)
		require.NoError(t, err)
		require.Equal(t, len(want.Txs), len(got.Txs))
		for i, tx := range want.Txs {
			require.Equal(t, tx.From, got.Txs[i].From)
			require.Equal(t, tx.Seqno, got.Txs[i].Seqno)
			// An empty bytes field is omitted on the wire, so []byte{} and nil
			// are the same value; compare contents.
			require.Equal(t, string(tx.Data), string(got.Txs[i].Data))
		}
		if want.Control == nil {
			require.Nil(t, got.Control)
			continue
		}
		require.NotNil(t, got.Control)
		require.Equal(t, len(want.Control.HaveTx), len(got.Control.HaveTx))
		for i, h := range want.Control.HaveTx {
			require.Equal(t, h.TxID, got.Control.HaveTx[i].TxID)
		}
		require.Equal(t, len(want.Control.ResetRoute), len(got.Control.ResetRoute))
	}
}

func TestTxEmptyFieldsOmitted(t *testing.T) {
	tx := &Tx{}
	require.Equal(t, 0, tx.Size())
	require.Empty(t, tx.Marshal(nil))
}
