/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package task_handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	"github.com/Nomoos/prismq-taskqueue/pkg/engine"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/utils"
)

// submitTask enqueues one task.
// POST /tasks
func (h *Handler) submitTask(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	var req engine.SubmitRequest
	if err := utils.ParseRequestBody(c, &req); err != nil {
		return nil, err
	}
	result, err := h.engine.Submit(ctx, &req)
	if err != nil {
		return nil, err
	}
	info, err := cvtTask(result.Task)
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{TaskInfo: info, Deduplicated: result.Deduplicated}, nil
}

// claimTask hands the next eligible task to the calling worker. A null
// payload means nothing was eligible.
// POST /tasks/claim
func (h *Handler) claimTask(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	var req engine.ClaimRequest
	if err := utils.ParseRequestBody(c, &req); err != nil {
		return nil, err
	}
	task, err := h.engine.Claim(ctx, &req)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	return cvtTask(task)
}

// updateTaskProgress records worker progress on a claimed task.
// POST /tasks/:id/progress
func (h *Handler) updateTaskProgress(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	id, err := parseTaskId(c)
	if err != nil {
		return nil, err
	}
	var req ProgressRequest
	if err = utils.ParseRequestBody(c, &req); err != nil {
		return nil, err
	}
	if err = h.engine.UpdateProgress(ctx, id, req.WorkerId, req.Progress); err != nil {
		return nil, err
	}
	return gin.H{"id": id, "progress": req.Progress}, nil
}

// completeTask finishes a claimed task with success or failure.
// POST /tasks/:id/complete
func (h *Handler) completeTask(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	id, err := parseTaskId(c)
	if err != nil {
		return nil, err
	}
	var req engine.CompleteRequest
	if err = utils.ParseRequestBody(c, &req); err != nil {
		return nil, err
	}
	req.TaskId = id
	task, err := h.engine.Complete(ctx, &req)
	if err != nil {
		return nil, err
	}
	return cvtTask(task)
}

// getTask fetches one task by id.
// GET /tasks/:id
func (h *Handler) getTask(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	id, err := parseTaskId(c)
	if err != nil {
		return nil, err
	}
	task, err := h.dbClient.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return cvtTask(task)
}

// listTasks pages through tasks with optional status and type filters.
// GET /tasks
func (h *Handler) listTasks(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	limit, err := strconv.Atoi(h.limitTpl.Eval(c))
	if err != nil || limit <= 0 {
		return nil, qerrors.NewBadRequest("limit must be a positive integer")
	}
	offset, err := strconv.Atoi(h.offsetTpl.Eval(c))
	if err != nil || offset < 0 {
		return nil, qerrors.NewBadRequest("offset must be a non-negative integer")
	}

	var typeId int64
	if typeName := c.Query("type"); typeName != "" {
		taskType, err := h.registry.Get(ctx, typeName)
		if err != nil {
			return nil, err
		}
		typeId = taskType.Id
	}
	query := client.BuildListTasksSql(c.Query("status"), typeId)

	total, err := h.dbClient.CountTasks(ctx, query)
	if err != nil {
		return nil, err
	}
	dbTags := client.GetTaskFieldTags()
	orderBy := []string{client.GetFieldTag(dbTags, "CreatedAt") + " " + client.DESC}
	tasks, err := h.dbClient.SelectTasks(ctx, query, orderBy, limit, offset)
	if err != nil {
		return nil, err
	}

	infos := make([]*TaskInfo, 0, len(tasks))
	for _, task := range tasks {
		info, err := cvtTask(task)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return &ListTasksResponse{Tasks: infos, Total: total, Limit: limit, Offset: offset}, nil
}

// getTaskHistory returns the audit trail of a task. With history disabled
// the endpoint reports not found.
// GET /tasks/:id/history
func (h *Handler) getTaskHistory(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	if !config.IsHistoryEnabled() {
		return nil, qerrors.NewNotFoundWithMessage("task history is disabled")
	}
	id, err := parseTaskId(c)
	if err != nil {
		return nil, err
	}
	if _, err = h.dbClient.GetTask(ctx, id); err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectTaskHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	infos := make([]*TaskHistoryInfo, 0, len(records))
	for _, record := range records {
		infos = append(infos, cvtTaskHistory(record))
	}
	return infos, nil
}

func parseTaskId(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, qerrors.NewBadRequest("the task id must be a positive integer")
	}
	return id, nil
}
