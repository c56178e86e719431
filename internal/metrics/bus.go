// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_bus_dropped_total",
		Help: "Pipeline bus messages dropped before dispatch, by message type and reason",
	}, []string{"type", "reason"})

	BusDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_bus_dispatched_total",
		Help: "Pipeline bus messages handed to the sync handler, by message type",
	}, []string{"type"})
)

// IncBusDrop records a dropped bus message with a concrete reason.
func IncBusDrop(msgType, reason string) {
	if msgType == "" {
		msgType = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(msgType, reason).Inc()
}

// IncBusDispatch records a bus message delivered to the handler.
func IncBusDispatch(msgType string) {
	BusDispatchedTotal.WithLabelValues(msgType).Inc()
}
