/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package task_handlers

import (
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/timeutil"
)

// TaskInfo is the wire form of a task.
type TaskInfo struct {
	Id           int64       `json:"id"`
	TypeId       int64       `json:"type_id"`
	Status       string      `json:"status"`
	Params       interface{} `json:"params"`
	DedupeKey    string      `json:"dedupe_key"`
	Result       interface{} `json:"result,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Priority     int         `json:"priority"`
	Progress     int         `json:"progress"`
	Attempts     int         `json:"attempts"`
	ClaimedBy    string      `json:"claimed_by,omitempty"`
	ClaimedAt    string      `json:"claimed_at,omitempty"`
	CompletedAt  string      `json:"completed_at,omitempty"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at"`
}

// SubmitResponse is a TaskInfo plus the dedupe outcome.
type SubmitResponse struct {
	*TaskInfo
	Deduplicated bool `json:"deduplicated"`
}

// ListTasksResponse pages through tasks.
type ListTasksResponse struct {
	Tasks  []*TaskInfo `json:"tasks"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// TaskHistoryInfo is the wire form of one audit record.
type TaskHistoryInfo struct {
	Id           int64  `json:"id"`
	TaskId       int64  `json:"task_id"`
	StatusChange string `json:"status_change"`
	WorkerId     string `json:"worker_id,omitempty"`
	Message      string `json:"message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// RegisterTaskTypeRequest carries a type registration.
type RegisterTaskTypeRequest struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Schema  interface{} `json:"schema"`
}

// ProgressRequest carries a worker progress report.
type ProgressRequest struct {
	WorkerId string `json:"worker_id"`
	Progress int    `json:"progress"`
}

// cvtTask converts a stored task into its wire form. Stored JSON that no
// longer parses is corruption and surfaces as a fatal error.
func cvtTask(task *client.Task) (*TaskInfo, error) {
	params, err := jsonutil.UnmarshalValue([]byte(task.ParamsJson))
	if err != nil {
		return nil, qerrors.NewFatal("stored task params do not parse")
	}
	info := &TaskInfo{
		Id:           task.Id,
		TypeId:       task.TypeId,
		Status:       task.Status,
		Params:       params,
		DedupeKey:    task.DedupeKey,
		ErrorMessage: dbutils.ParseNullString(task.ErrorMessage),
		Priority:     task.Priority,
		Progress:     task.Progress,
		Attempts:     task.Attempts,
		ClaimedBy:    dbutils.ParseNullString(task.ClaimedBy),
		ClaimedAt:    dbutils.ParseNullTimeToString(task.ClaimedAt),
		CompletedAt:  dbutils.ParseNullTimeToString(task.CompletedAt),
		CreatedAt:    timeutil.FormatRFC3339(task.CreatedAt),
		UpdatedAt:    timeutil.FormatRFC3339(task.UpdatedAt),
	}
	if resultJson := dbutils.ParseNullString(task.ResultJson); resultJson != "" {
		result, err := jsonutil.UnmarshalValue([]byte(resultJson))
		if err != nil {
			return nil, qerrors.NewFatal("stored task result does not parse")
		}
		info.Result = result
	}
	return info, nil
}

func cvtTaskHistory(record *client.TaskHistory) *TaskHistoryInfo {
	return &TaskHistoryInfo{
		Id:           record.Id,
		TaskId:       record.TaskId,
		StatusChange: record.StatusChange,
		WorkerId:     dbutils.ParseNullString(record.WorkerId),
		Message:      dbutils.ParseNullString(record.Message),
		CreatedAt:    timeutil.FormatRFC3339(record.CreatedAt),
	}
}
