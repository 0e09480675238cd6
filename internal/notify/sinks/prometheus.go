package sinks

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/site-audit/internal/notify"
)

// PrometheusSink counts broadcasts by name and records when each name last fired.
type PrometheusSink struct {
	posted   *prometheus.CounterVec
	lastPost *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		posted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteaudit_broadcasts_total",
			Help: "Broadcasts posted, partitioned by name.",
		}, []string{"name"}),
		lastPost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "siteaudit_broadcast_last_timestamp_seconds",
			Help: "Unix time of the most recent broadcast per name.",
		}, []string{"name"}),
	}
	for _, collector := range []prometheus.Collector{s.posted, s.lastPost} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register broadcast collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors for evt.
func (s *PrometheusSink) Consume(evt notify.Event) {
	name := string(evt.Name)
	s.posted.WithLabelValues(name).Inc()
	if !evt.TS.IsZero() {
		s.lastPost.WithLabelValues(name).Set(float64(evt.TS.Unix()))
	}
}
