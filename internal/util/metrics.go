package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingGroupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_groups_created_total",
		Help: "Total number of booking groups submitted",
	})

	BookingGroupsEditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_groups_edited_total",
		Help: "Total number of booking groups replaced through the editor",
	})

	BookingSubmissionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_submissions_rejected_total",
		Help: "Total number of rejected checkout confirmations",
	}, []string{"reason"})

	BookingStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_status_transitions_total",
		Help: "Total number of booking group status transitions",
	}, []string{"action"})

	CheckoutConfirmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_latency_seconds",
		Help:    "Latency of the transactional check-and-reserve on confirm",
		Buckets: prometheus.DefBuckets,
	})

	AvailabilityCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_cache_lookups_total",
		Help: "Availability snapshot cache lookups by result",
	}, []string{"result"})

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
