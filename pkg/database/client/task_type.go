/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

// UpsertTaskType creates or updates a task type record keyed by name.
// Re-registration updates version and schema and re-activates the type.
// The unique index on name serializes concurrent registrations.
func (c *Client) UpsertTaskType(ctx context.Context, taskType *TaskType) error {
	if taskType == nil {
		return qerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getGormDB()
	if err != nil {
		return err
	}
	taskType.UpdatedAt = time.Now().UTC()
	if taskType.CreatedAt.IsZero() {
		taskType.CreatedAt = taskType.UpdatedAt
	}

	// GORM's On Conflict clause handles the insert-or-update race on name.
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"version", "param_schema", "is_active", "updated_at",
		}),
	}).Create(taskType).Error
	if err != nil {
		klog.ErrorS(err, "failed to upsert task type", "name", taskType.Name)
		return dbutils.ClassifyError(err)
	}
	return nil
}

// SelectTaskTypes retrieves multiple task type records.
func (c *Client) SelectTaskTypes(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*TaskType, error) {
	startTime := time.Now().UTC()
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	builder := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTaskType).
		Where(query).
		OrderBy(orderBy...)
	if limit > 0 {
		builder = builder.Limit(uint64(limit)).Offset(uint64(offset))
	}
	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	defer c.logSlowQuery(startTime, sqlStr)

	ctx2, cancel := c.queryContext(ctx)
	defer cancel()
	var taskTypes []*TaskType
	if err = db.SelectContext(ctx2, &taskTypes, sqlStr, args...); err != nil {
		return nil, dbutils.ClassifyError(err)
	}
	return taskTypes, nil
}

// GetTaskTypeByName retrieves a task type by its unique name.
func (c *Client) GetTaskTypeByName(ctx context.Context, name string) (*TaskType, error) {
	if name == "" {
		return nil, qerrors.NewBadRequest("the task type name is empty")
	}
	dbTags := GetTaskTypeFieldTags()
	dbSql := sqrl.Eq{GetFieldTag(dbTags, "Name"): name}
	taskTypes, err := c.SelectTaskTypes(ctx, dbSql, nil, 1, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select task type", "name", name)
		return nil, err
	}
	if len(taskTypes) == 0 {
		return nil, qerrors.NewTaskTypeNotFound(name)
	}
	return taskTypes[0], nil
}

// GetTaskType retrieves a task type by id.
func (c *Client) GetTaskType(ctx context.Context, id int64) (*TaskType, error) {
	if id <= 0 {
		return nil, qerrors.NewBadRequest("the task type id is empty")
	}
	dbTags := GetTaskTypeFieldTags()
	dbSql := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	taskTypes, err := c.SelectTaskTypes(ctx, dbSql, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(taskTypes) == 0 {
		return nil, qerrors.NewNotFoundWithMessage(fmt.Sprintf("task type %d not found", id))
	}
	return taskTypes[0], nil
}

// SelectTaskTypeUsage aggregates per-type task counts and the most recent
// submission time. Computed on demand; never cached on the type row.
func (c *Client) SelectTaskTypeUsage(ctx context.Context) (map[int64]*TaskTypeUsage, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	sqlStr := fmt.Sprintf(
		`SELECT type_id, COUNT(*) AS task_count, MAX(created_at) AS last_created FROM %s GROUP BY type_id`, TTask)
	var usages []*TaskTypeUsage
	if err = db.SelectContext(ctx, &usages, sqlStr); err != nil {
		return nil, dbutils.ClassifyError(err)
	}
	result := make(map[int64]*TaskTypeUsage, len(usages))
	for _, usage := range usages {
		result[usage.TypeId] = usage
	}
	return result, nil
}

// SetTaskTypeActive flips the soft-deactivation flag of a task type.
// Task types are never physically deleted.
func (c *Client) SetTaskTypeActive(ctx context.Context, name string, active bool) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := fmt.Sprintf(`UPDATE %s SET is_active=$1, updated_at=$2 WHERE name=$3`, TTaskType)
	res, err := db.ExecContext(ctx, cmd, active, time.Now().UTC(), name)
	if err != nil {
		klog.ErrorS(err, "failed to set task type active", "name", name, "active", active)
		return dbutils.ClassifyError(err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return qerrors.NewTaskTypeNotFound(name)
	}
	return nil
}
