/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

var (
	insertTaskFormat = `INSERT INTO ` + TTask + ` (%s) VALUES (%s) RETURNING id, created_at, updated_at`

	// completeFailCmd applies the re-queue-vs-fail policy in one guarded
	// statement: the task re-queues while attempts is below the bound and
	// fails terminally otherwise. claimed_by is kept on terminal failure so
	// the last worker remains recorded.
	completeFailCmd = fmt.Sprintf(`UPDATE %s SET
		status = CASE WHEN attempts < $1 THEN '%s' ELSE '%s' END,
		claimed_by = CASE WHEN attempts < $1 THEN NULL ELSE claimed_by END,
		claimed_at = CASE WHEN attempts < $1 THEN NULL ELSE claimed_at END,
		completed_at = CASE WHEN attempts < $1 THEN NULL ELSE NOW() END,
		error_message = $2,
		updated_at = NOW()
		WHERE id = $3 AND status = '%s' AND claimed_by = $4
		RETURNING status, attempts`,
		TTask, TaskStatusPending, TaskStatusFailed, TaskStatusClaimed)

	reclaimExpiredCmd = fmt.Sprintf(`UPDATE %s SET
		status = CASE WHEN attempts < $1 THEN '%s' ELSE '%s' END,
		claimed_by = CASE WHEN attempts < $1 THEN NULL ELSE claimed_by END,
		claimed_at = CASE WHEN attempts < $1 THEN NULL ELSE claimed_at END,
		completed_at = CASE WHEN attempts < $1 THEN NULL ELSE NOW() END,
		error_message = $2,
		updated_at = NOW()
		WHERE status = '%s' AND claimed_at < $3
		RETURNING id, status, claimed_by`,
		TTask, TaskStatusPending, TaskStatusFailed, TaskStatusClaimed)

	completeSuccessCmd = fmt.Sprintf(`UPDATE %s SET
		status = '%s', result_json = $1, progress = 100, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = '%s' AND claimed_by = $3`,
		TTask, TaskStatusCompleted, TaskStatusClaimed)

	updateProgressCmd = fmt.Sprintf(`UPDATE %s SET progress = $1, updated_at = NOW()
		WHERE id = $2 AND status = '%s' AND claimed_by = $3`,
		TTask, TaskStatusClaimed)

	claimUpdateCmd = fmt.Sprintf(`UPDATE %s SET
		status = '%s', claimed_by = $1, claimed_at = NOW(), attempts = attempts + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING attempts, claimed_at, updated_at`,
		TTask, TaskStatusClaimed)
)

// ClaimQuery carries the parameters of one claim attempt. OrderBy must come
// from the engine's claim policy; it is never built from raw request input.
type ClaimQuery struct {
	WorkerId    string
	TypeId      int64
	TypePattern string
	OrderBy     []string
}

// InsertTask inserts a pending task row and fills in the generated id and
// timestamps. A dedupe-key collision surfaces as a unique-violation error.
func (c *Client) InsertTask(ctx context.Context, task *Task) error {
	if task == nil {
		return qerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	task.UpdatedAt = time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = task.UpdatedAt
	}
	ctx2, cancel := c.queryContext(ctx)
	defer cancel()

	cmd := generateCommand(*task, insertTaskFormat, "id")
	rows, err := db.NamedQueryContext(ctx2, cmd, task)
	if err != nil {
		return dbutils.ClassifyError(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err = rows.Scan(&task.Id, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return dbutils.ClassifyError(err)
		}
	}
	return dbutils.ClassifyError(rows.Err())
}

// SelectTasks retrieves multiple task records.
func (c *Client) SelectTasks(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Task, error) {
	startTime := time.Now().UTC()
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sqlStr, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTask).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	defer c.logSlowQuery(startTime, sqlStr)

	ctx2, cancel := c.queryContext(ctx)
	defer cancel()
	var tasks []*Task
	if err = db.SelectContext(ctx2, &tasks, sqlStr, args...); err != nil {
		return nil, dbutils.ClassifyError(err)
	}
	return tasks, nil
}

// CountTasks returns the total count of tasks matching the criteria.
func (c *Client) CountTasks(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TTask).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, sqlStr, args...); err != nil {
		return 0, dbutils.ClassifyError(err)
	}
	return cnt, nil
}

// GetTask retrieves a task by id.
func (c *Client) GetTask(ctx context.Context, id int64) (*Task, error) {
	if id <= 0 {
		return nil, qerrors.NewBadRequest("the task id is empty")
	}
	dbTags := GetTaskFieldTags()
	dbSql := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	tasks, err := c.SelectTasks(ctx, dbSql, nil, 1, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select task", "id", id)
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, qerrors.NewTaskNotFound(id)
	}
	return tasks[0], nil
}

// GetTaskByDedupeKey retrieves a task by its dedupe key.
func (c *Client) GetTaskByDedupeKey(ctx context.Context, key string) (*Task, error) {
	if key == "" {
		return nil, qerrors.NewBadRequest("the dedupe key is empty")
	}
	dbTags := GetTaskFieldTags()
	dbSql := sqrl.Eq{GetFieldTag(dbTags, "DedupeKey"): key}
	tasks, err := c.SelectTasks(ctx, dbSql, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, qerrors.NewNotFoundWithMessage(fmt.Sprintf("task with dedupe key %s not found", key))
	}
	return tasks[0], nil
}

// ClaimNextTask atomically claims the next eligible pending task for a
// worker. The candidate row is locked with FOR UPDATE SKIP LOCKED so that
// concurrent claimers either pick different rows or observe an empty set;
// the status flip and attempt increment commit in the same transaction.
// Returns nil when no task is eligible.
func (c *Client) ClaimNextTask(ctx context.Context, claim *ClaimQuery) (*Task, error) {
	if claim == nil || claim.WorkerId == "" {
		return nil, qerrors.NewBadRequest("the worker id is empty")
	}
	startTime := time.Now().UTC()

	builder := sqrl.Select("t.*").PlaceholderFormat(sqrl.Dollar).
		From(TTask + " t").
		Where(sqrl.Eq{"t.status": TaskStatusPending})
	if claim.TypeId > 0 {
		builder = builder.Where(sqrl.Eq{"t.type_id": claim.TypeId})
	}
	if claim.TypePattern != "" {
		builder = builder.
			Join(TTaskType + " tt ON tt.id = t.type_id").
			Where(sqrl.Like{"tt.name": claim.TypePattern})
	}
	builder = builder.OrderBy(claim.OrderBy...).
		Limit(1).
		Suffix("FOR UPDATE OF t SKIP LOCKED")
	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	defer c.logSlowQuery(startTime, sqlStr)

	var claimed *Task
	err = c.withTx(ctx, func(tx *sqlx.Tx) error {
		task := &Task{}
		if err := tx.Unsafe().GetContext(ctx, task, sqlStr, args...); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}
		row := tx.QueryRowxContext(ctx, claimUpdateCmd, claim.WorkerId, task.Id)
		if err := row.Scan(&task.Attempts, &task.ClaimedAt, &task.UpdatedAt); err != nil {
			return err
		}
		task.Status = TaskStatusClaimed
		task.ClaimedBy = dbutils.NullString(claim.WorkerId)
		claimed = task
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to claim task", "worker", claim.WorkerId)
		return nil, err
	}
	return claimed, nil
}

// UpdateTaskProgress updates the progress of a task owned by the worker.
// Returns the number of rows updated; zero means the guard did not match.
func (c *Client) UpdateTaskProgress(ctx context.Context, id int64, workerId string, progress int) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, updateProgressCmd, progress, id, workerId)
	if err != nil {
		klog.ErrorS(err, "failed to update task progress", "id", id)
		return 0, dbutils.ClassifyError(err)
	}
	return res.RowsAffected()
}

// CompleteTaskSuccess marks a claimed task as completed with its result.
// Returns the number of rows updated; zero means the guard did not match.
func (c *Client) CompleteTaskSuccess(ctx context.Context, id int64, workerId string, resultJson sql.NullString) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, completeSuccessCmd, resultJson, id, workerId)
	if err != nil {
		klog.ErrorS(err, "failed to complete task", "id", id)
		return 0, dbutils.ClassifyError(err)
	}
	return res.RowsAffected()
}

// CompleteTaskFailure applies the re-queue-vs-fail policy to a claimed task
// owned by the worker. Returns the resulting status, or "" when the guard
// did not match.
func (c *Client) CompleteTaskFailure(ctx context.Context, id int64, workerId, errMsg string, maxAttempts int) (string, error) {
	db, err := c.getDB()
	if err != nil {
		return "", err
	}
	var status string
	var attempts int
	row := db.QueryRowxContext(ctx, completeFailCmd, maxAttempts, errMsg, id, workerId)
	if err = row.Scan(&status, &attempts); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		klog.ErrorS(err, "failed to fail task", "id", id)
		return "", dbutils.ClassifyError(err)
	}
	return status, nil
}

// ReclaimedTask records the outcome of one reclaimed row.
type ReclaimedTask struct {
	Id       int64
	Status   string
	WorkerId string
}

// ReclaimExpiredTasks applies the failure policy to every task whose claim
// expired before the cutoff. The update is idempotent over already-reclaimed
// rows; concurrent sweeps are serialized per row by the storage row locks.
func (c *Client) ReclaimExpiredTasks(ctx context.Context, cutoff time.Time, maxAttempts int, errMsg string) ([]ReclaimedTask, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryxContext(ctx, reclaimExpiredCmd, maxAttempts, errMsg, cutoff)
	if err != nil {
		klog.ErrorS(err, "failed to reclaim expired tasks")
		return nil, dbutils.ClassifyError(err)
	}
	defer rows.Close()
	var reclaimed []ReclaimedTask
	for rows.Next() {
		var r ReclaimedTask
		var worker sql.NullString
		if err = rows.Scan(&r.Id, &r.Status, &worker); err != nil {
			return nil, dbutils.ClassifyError(err)
		}
		r.WorkerId = dbutils.ParseNullString(worker)
		reclaimed = append(reclaimed, r)
	}
	return reclaimed, dbutils.ClassifyError(rows.Err())
}

// BuildListTasksSql converts list filters into a parameterized query. The
// status filter matches exactly; the type filter matches the joined type id
// resolved by the caller.
func BuildListTasksSql(status string, typeId int64) sqrl.Sqlizer {
	dbTags := GetTaskFieldTags()
	dbSql := sqrl.And{}
	if status = strings.TrimSpace(status); status != "" {
		dbSql = append(dbSql, sqrl.Eq{GetFieldTag(dbTags, "Status"): status})
	}
	if typeId > 0 {
		dbSql = append(dbSql, sqrl.Eq{GetFieldTag(dbTags, "TypeId"): typeId})
	}
	return dbSql
}
