package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginsTotal counts login attempts by result: ok, denied, error.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	// InvalidationsTotal counts sessions cleared through the 401 path.
	InvalidationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_invalidations_total",
		Help: "Sessions cleared by a 401 invalidation.",
	})

	// GatewayRequestsTotal counts identity API calls by operation and status.
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Identity gateway calls by operation and HTTP status.",
		},
		[]string{"op", "status"},
	)

	// GatewayRequestDuration observes identity API call latencies.
	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Identity gateway call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Init registers metrics in the default registry. Call once per process.
func Init() {
	prometheus.MustRegister(LoginsTotal, InvalidationsTotal, GatewayRequestsTotal, GatewayRequestDuration)
}

// Handler exposes the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
