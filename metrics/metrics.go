// Package metrics holds the Prometheus collectors for GELF delivery.
// They register with the default registry; expose them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gelf_messages_total",
		Help: "Messages handed to a sender, by transport and result",
	}, []string{"transport", "result"})

	ChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gelf_chunks_total",
		Help: "UDP chunk datagrams written",
	}, []string{"transport"})

	OverflowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gelf_overflow_total",
		Help: "Payloads that needed more than the maximum number of chunks",
	}, []string{"policy", "outcome"})

	QueueDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gelf_queue_dropped_total",
		Help: "Events dropped because the delivery queue was full or closed",
	}, []string{"pipeline"})

	PayloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gelf_payload_bytes",
		Help:    "Size of encoded GELF payloads",
		Buckets: prometheus.ExponentialBuckets(128, 4, 8),
	})
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

func unknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// IncMessage records one send attempt.
func IncMessage(transport string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	MessagesTotal.WithLabelValues(unknown(transport), result).Inc()
}

func AddChunks(transport string, n int) {
	ChunksTotal.WithLabelValues(unknown(transport)).Add(float64(n))
}

// IncOverflow records what an overflow policy did: "dropped", "truncated"
// or "failed".
func IncOverflow(policy, outcome string) {
	OverflowTotal.WithLabelValues(unknown(policy), unknown(outcome)).Inc()
}

func IncQueueDropped(pipeline string) {
	QueueDroppedTotal.WithLabelValues(unknown(pipeline)).Inc()
}

func ObservePayload(n int) {
	PayloadBytes.Observe(float64(n))
}
