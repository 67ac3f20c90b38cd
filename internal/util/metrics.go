package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of calls to the storefront REST API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	GatewayFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_failures_total",
		Help: "Total number of failed storefront REST API calls",
	}, []string{"route", "kind"})

	CacheFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_fetch_total",
		Help: "Total number of settled cache fetches",
	}, []string{"cache", "result"})

	CacheStaleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_stale_responses_total",
		Help: "Responses discarded because a newer fetch was issued",
	}, []string{"cache"})

	CheckoutOrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Total number of orders placed through checkout",
	})

	CheckoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Total number of failed checkouts by stage",
	}, []string{"stage"})

	CheckoutDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_duplicates_total",
		Help: "Checkout triggers absorbed by the single-flight guard",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the place order flow",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
