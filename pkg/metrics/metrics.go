/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the Prometheus instrumentation of the queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksSubmitted counts accepted submissions, deduplicated or not.
	TasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prismq",
		Subsystem: "taskqueue",
		Name:      "tasks_submitted_total",
		Help:      "Accepted task submissions, partitioned by dedupe outcome.",
	}, []string{"deduplicated"})

	// TasksClaimed counts successful claims.
	TasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prismq",
		Subsystem: "taskqueue",
		Name:      "tasks_claimed_total",
		Help:      "Tasks handed to workers.",
	})

	// TasksCompleted counts completions by resulting status.
	TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prismq",
		Subsystem: "taskqueue",
		Name:      "tasks_completed_total",
		Help:      "Task completions, partitioned by resulting status.",
	}, []string{"status"})

	// TasksReclaimed counts tasks swept back from expired claims.
	TasksReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prismq",
		Subsystem: "taskqueue",
		Name:      "tasks_reclaimed_total",
		Help:      "Expired claims reclaimed by the sweeper, partitioned by resulting status.",
	}, []string{"status"})

	// RequestDuration observes HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prismq",
		Subsystem: "taskqueue",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)
