/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumns = []string{
	"id", "type_id", "status", "params_json", "dedupe_key", "result_json",
	"error_message", "priority", "progress", "attempts", "claimed_by",
	"claimed_at", "completed_at", "created_at", "updated_at",
}

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewClientWithDB(sqlx.NewDb(db, "postgres"), nil), mock
}

func pendingTaskRow(id int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(taskColumns).AddRow(
		id, 1, TaskStatusPending, `{"msg":"hi"}`, "abc123", nil,
		nil, 0, 0, 0, nil, nil, nil, now, now)
}

func TestInsertTaskNilInput(t *testing.T) {
	client := &Client{}
	err := client.InsertTask(context.Background(), nil)
	assert.ErrorContains(t, err, "the input is empty")
}

func TestInsertTaskNoDBConnection(t *testing.T) {
	client := &Client{}
	err := client.InsertTask(context.Background(), &Task{TypeId: 1})
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestInsertTaskFillsGeneratedFields(t *testing.T) {
	client, mock := newMockClient(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO tasks`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))

	task := &Task{
		TypeId:     1,
		Status:     TaskStatusPending,
		ParamsJson: `{"msg":"hi"}`,
		DedupeKey:  "abc123",
	}
	err := client.InsertTask(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, int64(7), task.Id)
	assert.False(t, task.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// nonZeroTime matches any non-zero time argument.
type nonZeroTime struct{}

func (nonZeroTime) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	return ok && !ts.IsZero()
}

func TestInsertTaskSetsTimestampsBeforeWrite(t *testing.T) {
	client, mock := newMockClient(t)
	now := time.Now().UTC()
	// Columns follow the Task field order with id skipped; created_at and
	// updated_at must reach the driver as real times, not zero values.
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(int64(1), TaskStatusPending, `{"msg":"hi"}`, "abc123",
			nil, nil, 0, 0, 0, nil, nil, nil, nonZeroTime{}, nonZeroTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))

	task := &Task{
		TypeId:     1,
		Status:     TaskStatusPending,
		ParamsJson: `{"msg":"hi"}`,
		DedupeKey:  "abc123",
	}
	err := client.InsertTask(context.Background(), task)
	require.NoError(t, err)
	assert.False(t, task.CreatedAt.IsZero())
	assert.False(t, task.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTaskDedupeCollision(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`INSERT INTO tasks`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := client.InsertTask(context.Background(), &Task{
		TypeId: 1, Status: TaskStatusPending, ParamsJson: `{}`, DedupeKey: "abc123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextTaskLocksAndClaimsInOneTransaction(t *testing.T) {
	client, mock := newMockClient(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT t\..* FROM tasks t .*FOR UPDATE OF t SKIP LOCKED`).
		WillReturnRows(pendingTaskRow(7))
	mock.ExpectQuery(`UPDATE tasks SET`).
		WithArgs("w1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "claimed_at", "updated_at"}).
			AddRow(1, now, now))
	mock.ExpectCommit()

	task, err := client.ClaimNextTask(context.Background(), &ClaimQuery{
		WorkerId: "w1",
		OrderBy:  []string{"t.priority DESC", "t.created_at ASC", "t.id ASC"},
	})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, int64(7), task.Id)
	assert.Equal(t, TaskStatusClaimed, task.Status)
	assert.Equal(t, "w1", task.ClaimedBy.String)
	assert.Equal(t, 1, task.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextTaskEmptyQueueReturnsNil(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT t\..* FROM tasks t`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	task, err := client.ClaimNextTask(context.Background(), &ClaimQuery{
		WorkerId: "w1",
		OrderBy:  []string{"t.id ASC"},
	})
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextTaskFiltersByTypeAndPattern(t *testing.T) {
	client, mock := newMockClient(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT t\..* FROM tasks t JOIN task_types tt ON tt\.id = t\.type_id`).
		WithArgs(TaskStatusPending, int64(3), "PrismQ.%").
		WillReturnRows(pendingTaskRow(9))
	mock.ExpectQuery(`UPDATE tasks SET`).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "claimed_at", "updated_at"}).
			AddRow(1, now, now))
	mock.ExpectCommit()

	task, err := client.ClaimNextTask(context.Background(), &ClaimQuery{
		WorkerId:    "w1",
		TypeId:      3,
		TypePattern: "PrismQ.%",
		OrderBy:     []string{"t.id ASC"},
	})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextTaskEmptyWorker(t *testing.T) {
	client := &Client{}
	_, err := client.ClaimNextTask(context.Background(), &ClaimQuery{})
	assert.ErrorContains(t, err, "worker id is empty")
}

func TestUpdateTaskProgressReportsRowcount(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`UPDATE tasks SET progress`).
		WithArgs(40, int64(7), "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := client.UpdateTaskProgress(context.Background(), 7, "w1", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskProgressGuardMiss(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`UPDATE tasks SET progress`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := client.UpdateTaskProgress(context.Background(), 7, "w2", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCompleteTaskSuccess(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`UPDATE tasks SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := client.CompleteTaskSuccess(context.Background(), 7, "w1",
		sql.NullString{String: `{"echoed":"hi"}`, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCompleteTaskFailureRequeues(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`UPDATE tasks SET`).
		WithArgs(3, "e1", int64(7), "w1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "attempts"}).
			AddRow(TaskStatusPending, 1))

	status, err := client.CompleteTaskFailure(context.Background(), 7, "w1", "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, status)
}

func TestCompleteTaskFailureTerminal(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`UPDATE tasks SET`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "attempts"}).
			AddRow(TaskStatusFailed, 3))

	status, err := client.CompleteTaskFailure(context.Background(), 7, "w1", "e2", 3)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, status)
}

func TestCompleteTaskFailureGuardMiss(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`UPDATE tasks SET`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "attempts"}))

	status, err := client.CompleteTaskFailure(context.Background(), 7, "w2", "e", 3)
	require.NoError(t, err)
	assert.Equal(t, "", status)
}

func TestReclaimExpiredTasks(t *testing.T) {
	client, mock := newMockClient(t)
	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	mock.ExpectQuery(`UPDATE tasks SET`).
		WithArgs(3, "claim timeout exceeded", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "claimed_by"}).
			AddRow(int64(1), TaskStatusPending, "w1").
			AddRow(int64(2), TaskStatusFailed, "w2"))

	reclaimed, err := client.ReclaimExpiredTasks(context.Background(), cutoff, 3, "claim timeout exceeded")
	require.NoError(t, err)
	require.Len(t, reclaimed, 2)
	assert.Equal(t, TaskStatusPending, reclaimed[0].Status)
	assert.Equal(t, "w2", reclaimed[1].WorkerId)
}

func TestReclaimExpiredTasksIdempotentOnEmptySet(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`UPDATE tasks SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "claimed_by"}))

	reclaimed, err := client.ReclaimExpiredTasks(context.Background(), time.Now().UTC(), 3, "expired")
	require.NoError(t, err)
	assert.Empty(t, reclaimed)
}

func TestGetTaskNotFound(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT \* FROM tasks`).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := client.GetTask(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 42 not found")
}

func TestGetTaskEmptyId(t *testing.T) {
	client := &Client{}
	_, err := client.GetTask(context.Background(), 0)
	assert.ErrorContains(t, err, "task id is empty")
}

func TestBuildListTasksSql(t *testing.T) {
	sqlStr, args, err := BuildListTasksSql("pending", 3).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "status = ?")
	assert.Contains(t, sqlStr, "type_id = ?")
	assert.Equal(t, []interface{}{"pending", int64(3)}, args)

	sqlStr, args, err = BuildListTasksSql("", 0).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=1)", sqlStr)
	assert.Empty(t, args)
}
