// Package metrics declares the prometheus vectors for both services. Vectors
// are created and registered once in main and injected; nothing instantiates
// metrics inside request paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopmesh"

// SalesMetrics covers the order placement workflow and the outbox dispatcher.
type SalesMetrics struct {
	OrdersPlaced       *prometheus.CounterVec   // labels: outcome
	PlaceOrderDuration *prometheus.HistogramVec // labels: outcome
	OutboxDispatched   *prometheus.CounterVec   // labels: topic, outcome
}

func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	m := &SalesMetrics{
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "orders_placed_total",
			Help:      "Total number of order placement attempts.",
		}, []string{"outcome"}),
		PlaceOrderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "place_order_duration_seconds",
			Help:      "Duration of order placement in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		OutboxDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "outbox_dispatched_total",
			Help:      "Outbox messages dispatched to the broker.",
		}, []string{"topic", "outcome"}),
	}
	reg.MustRegister(m.OrdersPlaced, m.PlaceOrderDuration, m.OutboxDispatched)
	return m
}

// StockMetrics covers the stock reconciler consumer.
type StockMetrics struct {
	StockAdjustments *prometheus.CounterVec // labels: operation, outcome
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	m := &StockMetrics{
		StockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "stock_adjustments_total",
			Help:      "Stock delta events processed by the reconciler.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.StockAdjustments)
	return m
}

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
