/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package engine drives the task lifecycle: submission with dedupe,
// atomic claiming, progress reporting, completion with the re-queue
// policy, and reclaiming of expired claims.
package engine

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	qbackoff "github.com/Nomoos/prismq-taskqueue/pkg/backoff"
	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	"github.com/Nomoos/prismq-taskqueue/pkg/dedupe"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/metrics"
	"github.com/Nomoos/prismq-taskqueue/pkg/registry"
	"github.com/Nomoos/prismq-taskqueue/pkg/schema"
)

const (
	deadlockRetryCount    = 3
	deadlockRetryInterval = 20 * time.Millisecond

	reclaimErrorMessage = "claim timeout exceeded"
)

// Config carries the lifecycle policy knobs.
type Config struct {
	MaxAttempts    int
	ClaimTimeout   time.Duration
	HistoryEnabled bool
}

// Engine coordinates the task lifecycle on top of the storage client.
type Engine struct {
	db        *client.Client
	registry  *registry.Registry
	validator *schema.Validator
	cfg       Config
}

// NewEngine creates an engine with an explicit policy configuration.
func NewEngine(db *client.Client, reg *registry.Registry, validator *schema.Validator, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 5 * time.Minute
	}
	return &Engine{db: db, registry: reg, validator: validator, cfg: cfg}
}

// NewEngineFromConfig creates an engine with the policy loaded from the
// server configuration.
func NewEngineFromConfig(db *client.Client, reg *registry.Registry, validator *schema.Validator) *Engine {
	return NewEngine(db, reg, validator, Config{
		MaxAttempts:    config.GetMaxTaskAttempts(),
		ClaimTimeout:   time.Duration(config.GetClaimTimeoutSecond()) * time.Second,
		HistoryEnabled: config.IsHistoryEnabled(),
	})
}

// Registry exposes the type catalog the engine validates against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// SubmitRequest carries one task submission.
type SubmitRequest struct {
	Type     string      `json:"type"`
	Params   interface{} `json:"params"`
	Priority int         `json:"priority"`
}

// SubmitResult is the submission outcome. Deduplicated marks that an
// existing task with the same fingerprint was returned instead of a new one.
type SubmitResult struct {
	Task         *client.Task
	Deduplicated bool
}

// Submit validates a submission against its type schema and enqueues it.
// A submission whose (type, params) fingerprint matches an existing task
// returns that task unchanged, whatever state it has reached.
func (e *Engine) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if req == nil || req.Type == "" {
		return nil, qerrors.NewBadRequest("the task type is empty")
	}
	taskType, err := e.registry.Get(ctx, req.Type)
	if err != nil {
		return nil, err
	}
	if !taskType.IsActive {
		// Deactivated types look unknown to submitters.
		return nil, qerrors.NewTaskTypeNotFound(req.Type)
	}

	params := req.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	filled, violations, err := e.validator.Validate(params, taskType.ParamSchema)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		details := make([]string, 0, len(violations))
		for _, violation := range violations {
			details = append(details, violation.String())
		}
		return nil, qerrors.NewValidation(details)
	}

	key, err := dedupe.Key(req.Type, filled)
	if err != nil {
		return nil, qerrors.NewBadRequest(fmt.Sprintf("the params are not serializable: %v", err))
	}
	task := &client.Task{
		TypeId:     taskType.Id,
		Status:     client.TaskStatusPending,
		ParamsJson: string(jsonutil.MarshalSilently(filled)),
		DedupeKey:  key,
		Priority:   req.Priority,
	}
	if err = e.db.InsertTask(ctx, task); err != nil {
		if qerrors.IsUniqueViolation(err) {
			existing, getErr := e.db.GetTaskByDedupeKey(ctx, key)
			if getErr != nil {
				return nil, getErr
			}
			metrics.TasksSubmitted.WithLabelValues("true").Inc()
			return &SubmitResult{Task: existing, Deduplicated: true}, nil
		}
		return nil, err
	}
	e.recordHistory(ctx, task.Id, client.TaskStatusPending, "", "task submitted")
	metrics.TasksSubmitted.WithLabelValues("false").Inc()
	return &SubmitResult{Task: task}, nil
}

// ClaimRequest carries one claim attempt.
type ClaimRequest struct {
	WorkerId    string `json:"worker_id"`
	TaskTypeId  int64  `json:"task_type_id"`
	TypePattern string `json:"type_pattern"`
	SortBy      string `json:"sort_by"`
	SortOrder   string `json:"sort_order"`
}

// Claim hands the next eligible pending task to a worker, or nil when the
// queue has nothing eligible. Claim order comes from the sort whitelist.
func (e *Engine) Claim(ctx context.Context, req *ClaimRequest) (*client.Task, error) {
	if req == nil || req.WorkerId == "" {
		return nil, qerrors.NewBadRequest("the worker id is empty")
	}
	orderBy, err := BuildClaimOrder(req.SortBy, req.SortOrder)
	if err != nil {
		return nil, err
	}
	query := &client.ClaimQuery{
		WorkerId:    req.WorkerId,
		TypeId:      req.TaskTypeId,
		TypePattern: req.TypePattern,
		OrderBy:     orderBy,
	}

	var task *client.Task
	err = qbackoff.DeadlockRetry(func() error {
		task, err = e.db.ClaimNextTask(ctx, query)
		return err
	}, deadlockRetryCount, deadlockRetryInterval)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	e.recordHistory(ctx, task.Id, client.TaskStatusClaimed, req.WorkerId,
		fmt.Sprintf("attempt %d", task.Attempts))
	metrics.TasksClaimed.Inc()
	return task, nil
}

// UpdateProgress records worker progress on a claimed task. Repeating the
// same value is a no-op, not an error.
func (e *Engine) UpdateProgress(ctx context.Context, id int64, workerId string, progress int) error {
	if workerId == "" {
		return qerrors.NewBadRequest("the worker id is empty")
	}
	if progress < 0 || progress > 100 {
		return qerrors.NewBadRequest("progress must be between 0 and 100")
	}
	count, err := e.db.UpdateTaskProgress(ctx, id, workerId, progress)
	if err != nil {
		return err
	}
	if count == 0 {
		return e.classifyGuardMiss(ctx, id, workerId)
	}
	return nil
}

// CompleteRequest carries one completion report.
type CompleteRequest struct {
	TaskId       int64       `json:"-"`
	WorkerId     string      `json:"worker_id"`
	Success      bool        `json:"success"`
	Result       interface{} `json:"result"`
	ErrorMessage string      `json:"error_message"`
}

// Complete finishes a claimed task. Success stores the result terminally;
// failure either re-queues the task for another attempt or fails it
// terminally once the attempt bound is reached. Returns the task in its
// resulting state.
func (e *Engine) Complete(ctx context.Context, req *CompleteRequest) (*client.Task, error) {
	if req == nil || req.WorkerId == "" {
		return nil, qerrors.NewBadRequest("the worker id is empty")
	}
	if req.Success {
		result := dbutils.NullString("")
		if req.Result != nil {
			result = dbutils.NullString(string(jsonutil.MarshalSilently(req.Result)))
		}
		count, err := e.db.CompleteTaskSuccess(ctx, req.TaskId, req.WorkerId, result)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, e.classifyGuardMiss(ctx, req.TaskId, req.WorkerId)
		}
		e.recordHistory(ctx, req.TaskId, client.TaskStatusCompleted, req.WorkerId, "")
		metrics.TasksCompleted.WithLabelValues(client.TaskStatusCompleted).Inc()
		return e.db.GetTask(ctx, req.TaskId)
	}

	status, err := e.db.CompleteTaskFailure(ctx, req.TaskId, req.WorkerId, req.ErrorMessage, e.cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return nil, e.classifyGuardMiss(ctx, req.TaskId, req.WorkerId)
	}
	e.recordHistory(ctx, req.TaskId, status, req.WorkerId, req.ErrorMessage)
	metrics.TasksCompleted.WithLabelValues(status).Inc()
	return e.db.GetTask(ctx, req.TaskId)
}

// ReclaimExpired sweeps tasks whose claim outlived the claim timeout,
// re-queueing or failing them under the same policy as a reported failure.
// Returns the number of reclaimed tasks.
func (e *Engine) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-e.cfg.ClaimTimeout)
	reclaimed, err := e.db.ReclaimExpiredTasks(ctx, cutoff, e.cfg.MaxAttempts, reclaimErrorMessage)
	if err != nil {
		return 0, err
	}
	for _, r := range reclaimed {
		e.recordHistory(ctx, r.Id, r.Status, r.WorkerId, reclaimErrorMessage)
		metrics.TasksReclaimed.WithLabelValues(r.Status).Inc()
	}
	if len(reclaimed) > 0 {
		klog.Infof("reclaimed %d expired tasks", len(reclaimed))
	}
	return len(reclaimed), nil
}

// classifyGuardMiss explains why a guarded update matched no row: the task
// is gone, not claimed, or claimed by another worker.
func (e *Engine) classifyGuardMiss(ctx context.Context, id int64, workerId string) error {
	task, err := e.db.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != client.TaskStatusClaimed {
		return qerrors.NewWrongState(fmt.Sprintf("task %d is %s, not claimed", id, task.Status))
	}
	if dbutils.ParseNullString(task.ClaimedBy) != workerId {
		return qerrors.NewWrongOwner(fmt.Sprintf("task %d is claimed by another worker", id))
	}
	return qerrors.NewInternalError(fmt.Sprintf("task %d update matched no row", id))
}

// recordHistory appends an audit record when history is enabled. History is
// advisory and never fails the transition that produced it.
func (e *Engine) recordHistory(ctx context.Context, taskId int64, statusChange, workerId, message string) {
	if !e.cfg.HistoryEnabled {
		return
	}
	record := &client.TaskHistory{
		TaskId:       taskId,
		StatusChange: statusChange,
		WorkerId:     dbutils.NullString(workerId),
		Message:      dbutils.NullString(message),
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.db.InsertTaskHistory(ctx, record); err != nil {
		klog.ErrorS(err, "failed to record task history", "taskId", taskId, "change", statusChange)
	}
}
