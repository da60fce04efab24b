package dog

// DataTransform lets a caller wrap outbound/inbound transaction payloads,
// e.g. for compression. It mirrors the analogous hook in the redundancy
// controller's neighbour, libp2p-pubsub, which applies the same pattern to
// message payloads before they hit the wire.
type DataTransform interface {
	// InboundTransform is applied to a payload as it arrives off the wire,
	// before duplicate detection and before the user sees it.
	InboundTransform(data []byte) ([]byte, error)
	// OutboundTransform is applied to a payload supplied to Publish, before
	// it is sized and sent.
	OutboundTransform(data []byte) ([]byte, error)
}

// IdentityTransform is a DataTransform that passes payloads through
// unchanged. It is the default.
type IdentityTransform struct{}

// InboundTransform returns data unchanged.
func (IdentityTransform) InboundTransform(data []byte) ([]byte, error) { return data, nil }

// OutboundTransform returns data unchanged.
func (IdentityTransform) OutboundTransform(data []byte) ([]byte, error) { return data, nil }
