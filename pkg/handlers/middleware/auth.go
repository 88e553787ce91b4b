/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package middleware carries the gin middleware chain of the apiserver.
package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
)

// ApiKeyHeader carries the shared key on authenticated requests.
const ApiKeyHeader = "X-API-Key"

// exemptPaths skip authentication: liveness probes and the metrics scrape.
var exemptPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Authorize checks the shared API key with a constant-time comparison.
// With no key configured, authentication is disabled.
func Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := config.GetApiKey()
		if apiKey == "" || exemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		provided := c.GetHeader(ApiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			utils.AbortWithApiError(c, qerrors.NewUnauthorized("invalid or missing API key"))
			return
		}
		c.Next()
	}
}
