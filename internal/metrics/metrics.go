package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Realtime channel metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "starguide_ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starguide_ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starguide_ws_messages_received_total",
		Help: "The total number of events received from clients.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starguide_ws_messages_sent_total",
		Help: "The total number of events sent to clients.",
	})

	// Auth metrics
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starguide_ws_auth_failures_total",
		Help: "The total number of rejected WebSocket handshakes.",
	}, []string{"reason"})
)

// StartServer exposes Prometheus metrics on a dedicated port.
func StartServer(port, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting metrics server on %s%s", addr, path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
}
