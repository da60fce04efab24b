package dog

import "fmt"

// PublishError is returned by Behaviour.Publish when a transaction could not
// be accepted or sent.
type PublishError struct {
	// Kind identifies which failure occurred.
	Kind PublishErrorKind
	// QueuesFull is populated when Kind is ErrAllQueuesFull, counting how
	// many peer queues rejected the transaction.
	QueuesFull int
	// Err wraps the underlying transform error when Kind is
	// ErrTransformFailed.
	Err error
}

// PublishErrorKind enumerates the ways Publish can fail.
type PublishErrorKind int

const (
	// ErrDuplicate indicates the local node has already seen this exact
	// transaction (should not normally occur for locally authored data,
	// since seqnos are locally monotonic, but is checked defensively).
	ErrDuplicate PublishErrorKind = iota
	// ErrInsufficientPeers indicates there were no connected peers to send
	// the transaction to.
	ErrInsufficientPeers
	// ErrTransactionTooLarge indicates the outbound-transformed payload
	// exceeds Config.MaxTransmitSize.
	ErrTransactionTooLarge
	// ErrTransformFailed indicates the configured DataTransform rejected the
	// outbound payload.
	ErrTransformFailed
	// ErrAllQueuesFull indicates every connected peer's outbound queue was
	// full at publish time.
	ErrAllQueuesFull
)

func (e *PublishError) Error() string {
	switch e.Kind {
	case ErrDuplicate:
		return "dog: duplicate transaction"
	case ErrInsufficientPeers:
		return "dog: no peers connected"
	case ErrTransactionTooLarge:
		return "dog: transaction exceeds max transmit size"
	case ErrTransformFailed:
		return fmt.Sprintf("dog: outbound transform failed: %v", e.Err)
	case ErrAllQueuesFull:
		return fmt.Sprintf("dog: all %d peer queues are full", e.QueuesFull)
	default:
		return "dog: publish failed"
	}
}

// Unwrap exposes the wrapped transform error, if any.
func (e *PublishError) Unwrap() error { return e.Err }

// ValidationErrorKind enumerates wire validation failures.
type ValidationErrorKind int

const (
	// ErrInvalidPeerID indicates a transaction's `from` field did not parse
	// as a valid peer id.
	ErrInvalidPeerID ValidationErrorKind = iota
)

// ValidationError is recorded by the codec, one per received transaction
// that fails validation, in the decoded RPC's Invalid list.
type ValidationError struct {
	Kind ValidationErrorKind
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrInvalidPeerID:
		return "dog: invalid peer id"
	default:
		return "dog: validation failed"
	}
}
