// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package metrics defines the Prometheus instrumentation for export runs:
// document throughput per pipeline, enrichment fan-out failures, delivery
// latency and circuit breaker state. Metrics are exposed on a pushgateway or
// scraped from the optional metrics listener; a plain CLI run simply leaves
// them unregistered with any server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Export Pipeline Metrics

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_documents_processed_total",
			Help: "Total number of documents assembled per export pipeline",
		},
		[]string{"pipeline"}, // "users", "rooms", "seclogs"
	)

	DocumentsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_documents_delivered_total",
			Help: "Total number of documents successfully delivered to the sink",
		},
		[]string{"pipeline"},
	)

	DocumentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_documents_failed_total",
			Help: "Total number of documents that failed delivery",
		},
		[]string{"pipeline"},
	)

	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_enrichment_failures_total",
			Help: "Total number of secondary-entity fetches that failed and were recorded as unavailable",
		},
		[]string{"pipeline", "secondary"}, // secondary: "rooms", "sessions", "occupants"
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ofexport_run_duration_seconds",
			Help:    "Duration of a full export run in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"pipeline"},
	)

	// Openfire API Metrics

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_api_requests_total",
			Help: "Total number of Openfire REST API requests",
		},
		[]string{"operation", "outcome"}, // outcome: "success", "error"
	)

	// Sink Delivery Metrics

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ofexport_delivery_duration_seconds",
			Help:    "Duration of a single document delivery in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_delivery_errors_total",
			Help: "Total number of sink delivery errors",
		},
		[]string{"reason"}, // "transport", "status"
	)

	// Circuit Breaker Metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ofexport_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofexport_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)
)
