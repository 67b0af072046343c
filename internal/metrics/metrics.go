package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messaging_connected_sessions",
		Help: "Number of live websocket sessions.",
	})
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_messages_ingested_total",
		Help: "Messages accepted and persisted, by chat kind.",
	}, []string{"chat_kind"})
	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_deliveries_total",
		Help: "Live pushes delivered to sessions.",
	})
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_delivery_failures_total",
		Help: "Live pushes that failed (slow or closed sessions).",
	})
)

// Handler exposes the prometheus scrape endpoint as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
