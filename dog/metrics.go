package dog

import "github.com/prometheus/client_golang/prometheus"

// MetricsRegistry is the counter surface the behaviour updates as it sends
// and receives transactions. It is an interface, not a concrete Prometheus
// type, so that embedding applications can wire it into whatever metrics
// backend they already run; exposing a scrape HTTP endpoint is left to
// the caller (and to the benchmark harness this protocol was extracted
// from, which is out of scope here).
type MetricsRegistry interface {
	TxsSent(count int, bytes int)
	TxSentPublished()
	TxRecvUnfiltered()
	TxRecv(bytes int)
	TxDropped(reason DropReason)
}

// noopMetrics discards every observation. It is the default when no
// MetricsRegistry is supplied.
type noopMetrics struct{}

func (noopMetrics) TxsSent(int, int)          {}
func (noopMetrics) TxSentPublished()          {}
func (noopMetrics) TxRecvUnfiltered()         {}
func (noopMetrics) TxRecv(int)                {}
func (noopMetrics) TxDropped(DropReason)      {}

// PrometheusMetrics is a MetricsRegistry backed by prometheus counters,
// registered against reg.
type PrometheusMetrics struct {
	txsSentCounts           prometheus.Counter
	txsSentBytes            prometheus.Counter
	txsSentPublished        prometheus.Counter
	txsRecvCountsUnfiltered prometheus.Counter
	txsRecvCounts           prometheus.Counter
	txsRecvBytes            prometheus.Counter
	txsDropped              *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the dog counters against reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		txsSentCounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_sent_counts", Help: "Number of transactions sent.",
		}),
		txsSentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_sent_bytes", Help: "Bytes of transactions sent.",
		}),
		txsSentPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_sent_published", Help: "Number of transactions locally published.",
		}),
		txsRecvCountsUnfiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_recv_counts_unfiltered", Help: "Number of transactions received, including duplicates.",
		}),
		txsRecvCounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_recv_counts", Help: "Number of newly-seen transactions received.",
		}),
		txsRecvBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_recv_bytes", Help: "Bytes of newly-seen transactions received.",
		}),
		txsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dog", Name: "txs_dropped_total", Help: "Outbound queue items abandoned before reaching the wire, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.txsSentCounts, m.txsSentBytes, m.txsSentPublished,
		m.txsRecvCountsUnfiltered, m.txsRecvCounts, m.txsRecvBytes,
		m.txsDropped,
	)
	return m
}

// TxsSent records count transactions totalling bytes sent on the wire.
func (m *PrometheusMetrics) TxsSent(count, bytes int) {
	m.txsSentCounts.Add(float64(count))
	m.txsSentBytes.Add(float64(bytes))
}

// TxSentPublished records a locally-originated publish.
func (m *PrometheusMetrics) TxSentPublished() {
	m.txsSentPublished.Inc()
}

// TxRecvUnfiltered records every inbound transaction, duplicates included.
func (m *PrometheusMetrics) TxRecvUnfiltered() {
	m.txsRecvCountsUnfiltered.Inc()
}

// TxRecv records a newly-seen inbound transaction of the given size.
func (m *PrometheusMetrics) TxRecv(bytes int) {
	m.txsRecvCounts.Inc()
	m.txsRecvBytes.Add(float64(bytes))
}

// TxDropped records an outbound queue item abandoned for reason.
func (m *PrometheusMetrics) TxDropped(reason DropReason) {
	m.txsDropped.WithLabelValues(reason.String()).Inc()
}
