/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers assembles the gin engine of the apiserver.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	"github.com/Nomoos/prismq-taskqueue/pkg/engine"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/handlers/middleware"
	task_handlers "github.com/Nomoos/prismq-taskqueue/pkg/handlers/task-handlers"
	"github.com/Nomoos/prismq-taskqueue/pkg/registry"
	"github.com/Nomoos/prismq-taskqueue/pkg/schema"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
)

// InitHttpHandlers builds the gin engine: middleware chain, static routes
// and the data-driven surface. Returns the engine together with the
// lifecycle engine so the server can run the reclaim sweep.
func InitHttpHandlers(ctx context.Context) (*gin.Engine, *engine.Engine, error) {
	e := gin.New()
	e.Use(middleware.Audit(), gin.Recovery(), middleware.Authorize())
	e.NoRoute(func(c *gin.Context) {
		utils.AbortWithApiError(c, qerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	dbClient := client.NewClient()
	if dbClient == nil {
		return nil, nil, qerrors.NewInternalError("failed to connect the task queue database")
	}
	reg := registry.NewRegistry(dbClient)
	validator := schema.NewValidator(config.GetMaxPatternInputBytes())
	eng := engine.NewEngineFromConfig(dbClient, reg, validator)

	handler := task_handlers.NewHandler(dbClient, eng)
	if err := task_handlers.InitTaskRouters(ctx, e, handler); err != nil {
		return nil, nil, err
	}
	return e, eng, nil
}
