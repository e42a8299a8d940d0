package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	widgetOnce sync.Once
	apiOnce    sync.Once

	// ActionsTotal counts widget actions by outcome (applied, rejected, blocked, stale, cancelled).
	ActionsTotal *prometheus.CounterVec
	// NoticesTotal counts notices surfaced to the shopper.
	NoticesTotal *prometheus.CounterVec
	// ClientRequestsTotal counts cart API round trips issued by the widget.
	ClientRequestsTotal *prometheus.CounterVec
	// ClientRequestLatency records cart API round trip latency in milliseconds.
	ClientRequestLatency *prometheus.HistogramVec

	// CartMutationsTotal counts server-side cart mutations by outcome.
	CartMutationsTotal *prometheus.CounterVec
	// CatalogQueryLatency records catalog lookups against Postgres in milliseconds.
	CatalogQueryLatency *prometheus.HistogramVec
)

// MustRegisterWidgetMetrics initialises and registers the widget collectors.
func MustRegisterWidgetMetrics(namespace string, reg prometheus.Registerer) {
	widgetOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Count of cart widget actions by outcome.",
		}, []string{"action", "result"})
		NoticesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Count of notices shown to the shopper.",
		}, []string{"level"})
		ClientRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Count of cart API requests issued by the widget.",
		}, []string{"op", "result"})
		ClientRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_ms",
			Help:      "Latency of cart API requests in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"})

		mustRegisterCollector(reg, ActionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ActionsTotal = v
			}
		})
		mustRegisterCollector(reg, NoticesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NoticesTotal = v
			}
		})
		mustRegisterCollector(reg, ClientRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ClientRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, ClientRequestLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ClientRequestLatency = v
			}
		})
	})
}

// MustRegisterAPIMetrics initialises and registers the reference API collectors.
func MustRegisterAPIMetrics(namespace string, reg prometheus.Registerer) {
	apiOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations handled by the API.",
		}, []string{"op", "result"})
		CatalogQueryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_query_duration_ms",
			Help:      "Latency of catalog queries in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"operation"})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogQueryLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CatalogQueryLatency = v
			}
		})
	})
}

// CountAction increments ActionsTotal when widget metrics are registered.
func CountAction(action, result string) {
	if ActionsTotal == nil {
		return
	}
	ActionsTotal.WithLabelValues(action, result).Inc()
}

// CountNotice increments NoticesTotal when widget metrics are registered.
func CountNotice(level string) {
	if NoticesTotal == nil {
		return
	}
	NoticesTotal.WithLabelValues(level).Inc()
}

// ObserveClientRequest records the outcome and latency of one cart API call.
func ObserveClientRequest(op, result string, millis float64) {
	if ClientRequestsTotal != nil {
		ClientRequestsTotal.WithLabelValues(op, result).Inc()
	}
	if ClientRequestLatency != nil {
		ClientRequestLatency.WithLabelValues(op).Observe(millis)
	}
}

// CountMutation increments CartMutationsTotal when API metrics are registered.
func CountMutation(op, result string) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(op, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
