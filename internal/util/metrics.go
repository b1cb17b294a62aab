package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecofinds_signups_total",
		Help: "Total number of registered accounts",
	})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	ListingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecofinds_listings_created_total",
		Help: "Total number of listings created",
	})

	CartAddsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_cart_adds_total",
		Help: "Add-to-cart attempts by result",
	}, []string{"result"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_checkouts_total",
		Help: "Checkout attempts by result",
	}, []string{"result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecofinds_orders_created_total",
		Help: "Total number of orders created (one per seller per checkout)",
	})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_order_status_changes_total",
		Help: "Order status transitions by target status",
	}, []string{"status"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecofinds_checkout_latency_seconds",
		Help:    "Latency of the checkout operation",
		Buckets: prometheus.DefBuckets,
	})

	ListingClaimsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_listing_claims_failed_total",
		Help: "Listing claims rejected during checkout",
	}, []string{"reason"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofinds_notifications_created_total",
		Help: "Notifications written by the event worker",
	}, []string{"kind"})

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
