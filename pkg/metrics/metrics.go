package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RelayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ducky_relay_requests_total",
			Help: "Relay place-order requests by result (ok, misconfigured, upstream_rejected, fault).",
		},
		[]string{"result"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ducky_submissions_total",
			Help: "Signed trading actions sent to the exchange, by action and outcome kind.",
		},
		[]string{"action", "result"},
	)
)

func init() {
	prometheus.MustRegister(RelayRequests, Submissions)
}
