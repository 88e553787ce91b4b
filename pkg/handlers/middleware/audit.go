/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/Nomoos/prismq-taskqueue/pkg/metrics"
)

// RequestIdHeader carries the request id back to the caller and into logs.
const RequestIdHeader = "X-Request-Id"

// Audit logs one line per request with the request id, latency and status,
// and feeds the request-duration histogram. Handler errors recorded on the
// gin context are appended to the log line.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.New().String()
		}
		c.Header(RequestIdHeader, requestId)

		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		metrics.RequestDuration.WithLabelValues(
			c.Request.Method, route, statusLabel(status)).Observe(latency.Seconds())

		if len(c.Errors) > 0 {
			klog.Infof("%s %s %d %v requestId=%s errors=%s",
				c.Request.Method, c.Request.URL.Path, status, latency, requestId, c.Errors.String())
			return
		}
		klog.Infof("%s %s %d %v requestId=%s",
			c.Request.Method, c.Request.URL.Path, status, latency, requestId)
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
