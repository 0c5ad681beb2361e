package relay

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks relay-level counters.
type Metrics struct {
	requests *prometheus.CounterVec
	bytesOut prometheus.Counter
}

// NewMetrics creates the relay metrics and registers them with reg.
// A nil registerer yields working but unregistered collectors, which keeps
// tests free of global registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamgate",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Stream requests by HTTP status code.",
		}, []string{"status"}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamgate",
			Subsystem: "relay",
			Name:      "bytes_total",
			Help:      "Bytes forwarded to streaming clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.bytesOut)
	}
	return m
}

// ObserveRequest records one finished stream request and the bytes it sent.
func (m *Metrics) ObserveRequest(status int, sent int64) {
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	if sent > 0 {
		m.bytesOut.Add(float64(sent))
	}
}
