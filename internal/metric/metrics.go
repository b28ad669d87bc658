package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedClients tracks the number of live websocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatherhub_connected_clients",
		Help: "The number of live websocket connections",
	})

	// MutationsTotal counts processed mutations by message type and outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherhub_mutations_total",
		Help: "Processed mutation messages by type and outcome",
	}, []string{"type", "outcome"})

	// BroadcastRecipients counts messages fanned out to non-initiating
	// connections.
	BroadcastRecipients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherhub_broadcast_recipients_total",
		Help: "Messages delivered to non-initiating connections",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
