// Package metrics provides Prometheus metrics for the delivery pipeline
// and the realtime gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveriesPlanned counts AutoMessages created by the planner.
	DeliveriesPlanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_deliveries_planned_total",
			Help: "Total number of scheduled deliveries created by the planner",
		},
	)

	// DeliveriesDispatched counts deliveries published to the broker.
	DeliveriesDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_deliveries_dispatched_total",
			Help: "Total number of deliveries published to the broker",
		},
	)

	// DeliveryPublishFailures counts per-row publish failures that were
	// compensated back to PENDING.
	DeliveryPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_delivery_publish_failures_total",
			Help: "Total number of delivery publish failures reverted to pending",
		},
	)

	// DeliveriesProcessed counts deliveries the consumer materialized.
	DeliveriesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_deliveries_processed_total",
			Help: "Total number of deliveries materialized into messages",
		},
	)

	// DeliveriesDuplicate counts redeliveries skipped by the idempotency guard.
	DeliveriesDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_deliveries_duplicate_total",
			Help: "Total number of already-sent deliveries acknowledged without processing",
		},
	)

	// MessagesSent counts messages created through either write path.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages persisted",
		},
		[]string{"source"}, // "realtime" or "consumer"
	)

	// FanoutEvents counts room broadcasts by event type.
	FanoutEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_events_total",
			Help: "Total number of events broadcast to rooms",
		},
		[]string{"event"},
	)

	// ActiveConnections tracks currently open websocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Number of currently open websocket connections",
		},
	)

	// OnlineUsers tracks users with at least one live connection.
	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_online_users",
			Help: "Number of users with at least one live connection",
		},
	)
)

// RecordConnect updates connection gauges on attach.
func RecordConnect(cameOnline bool) {
	ActiveConnections.Inc()
	if cameOnline {
		OnlineUsers.Inc()
	}
}

// RecordDisconnect updates connection gauges on detach.
func RecordDisconnect(wentOffline bool) {
	ActiveConnections.Dec()
	if wentOffline {
		OnlineUsers.Dec()
	}
}
