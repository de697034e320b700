package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_connections_active",
			Help: "Number of currently open client connections",
		},
	)

	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	ConnectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_connection_errors_total",
			Help: "Total number of fatal connection errors by reason",
		},
		[]string{"reason"},
	)

	// Subscription metrics
	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_subscriptions_active",
			Help: "Number of live (topic, connection) subscription pairs",
		},
	)

	TopicsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_topics_active",
			Help: "Number of topics with at least one subscriber",
		},
	)

	// Publish and fan-out metrics
	MessagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_messages_published_total",
			Help: "Total number of publish frames accepted",
		},
	)

	PublishesWithoutSubscribers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_publishes_without_subscribers_total",
			Help: "Total number of publishes discarded because the topic had no subscribers",
		},
	)

	EventsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_events_delivered_total",
			Help: "Total number of event frames fully written to a subscriber",
		},
	)

	FanoutRecipients = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_fanout_recipients",
			Help:    "Number of recipients per published event",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	PendingEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_pending_events",
			Help: "Number of encoded events awaiting delivery to at least one subscriber",
		},
	)

	// Transfer metrics
	BytesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_bytes_read_total",
			Help: "Total bytes read from client connections",
		},
	)

	BytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_bytes_written_total",
			Help: "Total bytes written to client connections",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(ConnectionsTotal)
	prometheus.MustRegister(ConnectionErrors)
	prometheus.MustRegister(SubscriptionsActive)
	prometheus.MustRegister(TopicsActive)
	prometheus.MustRegister(MessagesPublished)
	prometheus.MustRegister(PublishesWithoutSubscribers)
	prometheus.MustRegister(EventsDelivered)
	prometheus.MustRegister(FanoutRecipients)
	prometheus.MustRegister(PendingEvents)
	prometheus.MustRegister(BytesRead)
	prometheus.MustRegister(BytesWritten)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
