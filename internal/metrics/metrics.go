package metrics

import (
	"github.com/googydeaath/dbhandle/internal/handle"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports handle status transitions as Prometheus metrics.
// It implements handle.Observer.
type Collector struct {
	status      *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewCollector creates a collector and registers it with reg,
// or the default registerer when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbhandle",
			Name:      "status",
			Help:      "Current status of the connection handle (0 not_exist, 1 ready, 2 busy, -1 disconnected, -2 error).",
		}, []string{"handle"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbhandle",
			Name:      "transitions_total",
			Help:      "Status transitions of connection handles.",
		}, []string{"from", "to"}),
	}

	for _, collector := range []prometheus.Collector{c.status, c.transitions} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// StatusChanged records a transition
func (c *Collector) StatusChanged(id string, from, to handle.Status) {
	c.status.WithLabelValues(id).Set(float64(to))
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
}
