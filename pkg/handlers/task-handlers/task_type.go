/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package task_handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
)

// registerTaskType creates or updates a task type.
// POST /task-types/register
func (h *Handler) registerTaskType(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	var req RegisterTaskTypeRequest
	if err := utils.ParseRequestBody(c, &req); err != nil {
		return nil, err
	}
	if req.Schema == nil {
		return nil, qerrors.NewInvalidSchema("the schema is empty")
	}
	schemaDoc := string(jsonutil.MarshalSilently(req.Schema))
	taskType, err := h.registry.Register(ctx, req.Name, req.Version, schemaDoc)
	if err != nil {
		return nil, err
	}
	return taskType, nil
}

// getTaskType fetches one task type by name.
// GET /task-types/:name
func (h *Handler) getTaskType(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	return h.registry.Get(ctx, c.Param("name"))
}

// listTaskTypes lists task types with usage statistics.
// GET /task-types
func (h *Handler) listTaskTypes(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	activeOnly := false
	if raw := c.Query("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, qerrors.NewBadRequest("active_only must be a boolean")
		}
		activeOnly = parsed
	}
	return h.registry.List(ctx, activeOnly)
}
