package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// envelopesReceived counts decoded envelopes by variant.
	envelopesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_envelopes_received_total",
		Help: "Total number of well-formed envelopes received by kind",
	}, []string{"kind"})

	// envelopesMalformed counts payloads the consumer could not decode.
	envelopesMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_envelopes_malformed_total",
		Help: "Total number of received payloads that failed to decode",
	})

	// jobsInFlight tracks jobs spawned by the consumer that have not
	// finished yet.
	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crawler_dispatch_jobs_in_flight",
		Help: "Number of dispatched jobs currently running",
	})
)
