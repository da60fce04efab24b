package dog

import "time"

// ValidationMode controls how strictly inbound peer identities are checked.
type ValidationMode int

const (
	// ValidationStrict rejects transactions whose `from` field does not
	// parse as a valid peer id. This is the default and the only mode
	// that should be used outside of tests.
	ValidationStrict ValidationMode = iota
	// ValidationNone accepts unparseable peer ids by substituting a random
	// one. It exists for fuzzing/benchmarking and must never be used in
	// production.
	ValidationNone
)

// Config holds the tunable parameters of the dog protocol. The zero value is
// not usable; build one with DefaultConfig and Option functions.
type Config struct {
	// TargetRedundancy is the number of duplicate deliveries per first-time
	// delivery a peer link aims to converge to.
	TargetRedundancy float64
	// RedundancyDeltaPercent defines the hysteresis band around
	// TargetRedundancy as a percentage of it.
	RedundancyDeltaPercent float64
	// RedundancyInterval is how often the redundancy controller re-evaluates
	// its counters for every connected peer.
	RedundancyInterval time.Duration
	// MaxTransmitSize is the largest encoded RPC this node will send or
	// accept.
	MaxTransmitSize int
	// ConnectionHandlerQueueLen bounds the outbound queue shared by all
	// connections to a given peer.
	ConnectionHandlerQueueLen int
	// PublishQueueDuration bounds how long a Publish entry may wait in the
	// outbound queue before being abandoned.
	PublishQueueDuration time.Duration
	// ForwardQueueDuration bounds how long a Forward entry may wait in the
	// outbound queue before being abandoned.
	ForwardQueueDuration time.Duration
	// ValidationMode controls peer id validation strictness.
	ValidationMode ValidationMode
	// ForwardTransactions disables forwarding entirely when false, turning
	// the node into a leaf that only ever publishes and observes.
	ForwardTransactions bool
	// MaxTransactionsPerRPC caps how many transactions are batched into a
	// single outbound RPC. Zero means unbounded.
	MaxTransactionsPerRPC int
	// DuplicateCacheTTL bounds how long a transaction id is remembered for
	// duplicate suppression.
	DuplicateCacheTTL time.Duration
	// ReconnectEnabled controls whether a full disconnect from a peer is
	// followed by backoff-retried redial attempts. The swarm contract
	// permits Dial only for this purpose, never autonomously otherwise.
	ReconnectEnabled bool
	// ReconnectBackoffMin is the initial delay before the first redial
	// attempt, doubling on each subsequent attempt.
	ReconnectBackoffMin time.Duration
	// ReconnectBackoffMax caps the redial delay.
	ReconnectBackoffMax time.Duration
	// ReconnectMaxAttempts bounds how many redials are attempted before a
	// disconnected peer is given up on for good.
	ReconnectMaxAttempts int
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		TargetRedundancy:          1.0,
		RedundancyDeltaPercent:    10,
		RedundancyInterval:        time.Second,
		MaxTransmitSize:           65536,
		ConnectionHandlerQueueLen: 128,
		PublishQueueDuration:      10 * time.Second,
		ForwardQueueDuration:      10 * time.Second,
		ValidationMode:            ValidationStrict,
		ForwardTransactions:       true,
		MaxTransactionsPerRPC:     0,
		DuplicateCacheTTL:         60 * time.Second,
		ReconnectEnabled:          true,
		ReconnectBackoffMin:       2 * time.Second,
		ReconnectBackoffMax:       5 * time.Minute,
		ReconnectMaxAttempts:      6,
	}
}

// Option mutates a Config being built by NewConfig.
type Option func(*Config) error

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// WithTargetRedundancy sets TargetRedundancy.
func WithTargetRedundancy(r float64) Option {
	return func(c *Config) error {
		c.TargetRedundancy = r
		return nil
	}
}

// WithRedundancyDeltaPercent sets RedundancyDeltaPercent.
func WithRedundancyDeltaPercent(p float64) Option {
	return func(c *Config) error {
		c.RedundancyDeltaPercent = p
		return nil
	}
}

// WithRedundancyInterval sets RedundancyInterval.
func WithRedundancyInterval(d time.Duration) Option {
	return func(c *Config) error {
		c.RedundancyInterval = d
		return nil
	}
}

// WithMaxTransmitSize sets MaxTransmitSize.
func WithMaxTransmitSize(n int) Option {
	return func(c *Config) error {
		c.MaxTransmitSize = n
		return nil
	}
}

// WithConnectionHandlerQueueLen sets ConnectionHandlerQueueLen.
func WithConnectionHandlerQueueLen(n int) Option {
	return func(c *Config) error {
		c.ConnectionHandlerQueueLen = n
		return nil
	}
}

// WithValidationMode sets ValidationMode.
func WithValidationMode(m ValidationMode) Option {
	return func(c *Config) error {
		c.ValidationMode = m
		return nil
	}
}

// WithForwardTransactions toggles ForwardTransactions.
func WithForwardTransactions(forward bool) Option {
	return func(c *Config) error {
		c.ForwardTransactions = forward
		return nil
	}
}

// WithMaxTransactionsPerRPC sets MaxTransactionsPerRPC.
func WithMaxTransactionsPerRPC(n int) Option {
	return func(c *Config) error {
		c.MaxTransactionsPerRPC = n
		return nil
	}
}

// WithReconnect toggles automatic redial of peers after a full disconnect
// and sets the backoff attempt budget.
func WithReconnect(enabled bool, maxAttempts int) Option {
	return func(c *Config) error {
		c.ReconnectEnabled = enabled
		c.ReconnectMaxAttempts = maxAttempts
		return nil
	}
}

// bounds returns the lower/upper redundancy thresholds derived from the
// configured target and delta percentage.
func (c Config) bounds() (lower, upper float64) {
	delta := c.TargetRedundancy * c.RedundancyDeltaPercent / 100
	return c.TargetRedundancy - delta, c.TargetRedundancy + delta
}
