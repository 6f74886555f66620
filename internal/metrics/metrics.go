package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricPrefix = "purecloud_"

var (
	CommandsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "commands_enqueued_total",
		Help: "Commands accepted into device queues",
	})

	CommandsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "commands_delivered_total",
		Help: "Commands reserved and handed to a polling device",
	})

	CommandsAcked = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "commands_acked_total",
		Help: "Commands acknowledged by devices",
	})

	PollEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "poll_empty_total",
		Help: "Polls that found no queued command",
	})

	ReserveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    metricPrefix + "reserve_duration_seconds",
		Help:    "Latency of the poll/reserve step",
		Buckets: prometheus.DefBuckets,
	})
)
