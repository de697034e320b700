/*
Package metrics provides Prometheus metrics and health endpoints for Burrow.

# Metrics

Connection lifecycle:

  - burrow_connections_active: open client connections
  - burrow_connections_total: connections accepted since start
  - burrow_connection_errors_total{reason}: fatal per-connection errors
    (reasons: decode, protocol, io, overflow, shutdown)

Subscriptions and fan-out:

  - burrow_subscriptions_active: live (topic, connection) pairs
  - burrow_topics_active: topics with at least one subscriber
  - burrow_messages_published_total: publish frames accepted
  - burrow_publishes_without_subscribers_total: publishes dropped on the floor
  - burrow_events_delivered_total: event frames fully drained to a socket
  - burrow_fanout_recipients: recipients per published event
  - burrow_pending_events: encoded events still owed to a subscriber

Transfer:

  - burrow_bytes_read_total / burrow_bytes_written_total

# Usage

	http.Handle("/metrics", metrics.Handler())
	http.Handle("/health", metrics.HealthHandler())
	http.Handle("/livez", metrics.LivenessHandler())
	http.ListenAndServe(":9100", nil)

The broker registers itself as a health component and flips it unhealthy when
shutdown begins, just before the listener closes.
*/
package metrics
