package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommitmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "commitment_transitions_total", Help: "Commitment state transitions committed"},
		[]string{"action"},
	)
	SwapQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_quotes_total", Help: "Swap quotes served"},
		[]string{"direction"},
	)
	SwapRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_rejections_total", Help: "Swap quote requests rejected"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(CommitmentTransitions, SwapQuotes, SwapRejections)
}
