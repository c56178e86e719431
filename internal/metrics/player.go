package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlayersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playbin_players_active",
		Help: "Players currently registered with the handler",
	})

	PlayerMessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_player_messages_dropped_total",
		Help: "Player channel messages discarded by kind and reason (overflow, closed)",
	}, []string{"kind", "reason"})

	PlayerMessagesForwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_player_messages_forwarded_total",
		Help: "Player messages merged into the handler event stream by kind",
	}, []string{"kind"})

	RateUpdatesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playbin_rate_updates_skipped_total",
		Help: "Playback rate updates dropped because another update held the rate lock",
	})
)

// IncMessageDropped records a player message that never reached the consumer.
func IncMessageDropped(kind, reason string) {
	PlayerMessagesDroppedTotal.WithLabelValues(kind, reason).Inc()
}

// IncMessageForwarded records a message merged into the handler stream.
func IncMessageForwarded(kind string) {
	PlayerMessagesForwardedTotal.WithLabelValues(kind).Inc()
}
