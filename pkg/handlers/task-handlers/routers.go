/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package task_handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/router"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
)

// InitTaskRouters registers the static routes and installs the data-driven
// surface from the endpoint tables.
func InitTaskRouters(ctx context.Context, e *gin.Engine, h *Handler) error {
	e.GET("/health", health)
	if config.IsMetricsEnable() {
		e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r := router.NewRouter(h.dbClient, h.Actions())
	return r.Install(ctx, e)
}

// health is the liveness probe; it is exempt from authentication.
// GET /health
func health(c *gin.Context) {
	utils.Respond(c, http.StatusOK, gin.H{"status": "ok"})
}
