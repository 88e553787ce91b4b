/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

var insertTaskHistoryFormat = `INSERT INTO ` + TTaskHistory + ` (%s) VALUES (%s)`

// InsertTaskHistory appends a status-transition record. History is advisory:
// failures are logged and surfaced but never roll back the transition itself.
func (c *Client) InsertTaskHistory(ctx context.Context, history *TaskHistory) error {
	if history == nil {
		return qerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := generateCommand(*history, insertTaskHistoryFormat, "id")
	if _, err = db.NamedExecContext(ctx, cmd, history); err != nil {
		klog.ErrorS(err, "failed to insert task history", "taskId", history.TaskId)
		return dbutils.ClassifyError(err)
	}
	return nil
}

// SelectTaskHistory retrieves the append-only audit trail of a task in
// insertion order.
func (c *Client) SelectTaskHistory(ctx context.Context, taskId int64) ([]*TaskHistory, error) {
	if taskId <= 0 {
		return nil, qerrors.NewBadRequest("the task id is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	dbTags := GetTaskHistoryFieldTags()
	sqlStr, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTaskHistory).
		Where(sqrl.Eq{GetFieldTag(dbTags, "TaskId"): taskId}).
		OrderBy(GetFieldTag(dbTags, "Id") + " " + ASC).
		ToSql()
	if err != nil {
		return nil, err
	}
	var records []*TaskHistory
	if err = db.SelectContext(ctx, &records, sqlStr, args...); err != nil {
		return nil, dbutils.ClassifyError(err)
	}
	return records, nil
}
