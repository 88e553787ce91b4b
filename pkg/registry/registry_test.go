/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

var taskTypeColumns = []string{
	"id", "name", "version", "param_schema", "is_active", "created_at", "updated_at",
}

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRegistry(client.NewClientWithDB(sqlx.NewDb(db, "postgres"), nil)), mock
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.Register(context.Background(), "", "1.0.0", `{"type": "object"}`)
	assert.True(t, qerrors.IsBadRequest(err))
}

func TestRegisterRejectsBadSchemaBeforeStorage(t *testing.T) {
	reg, mock := newTestRegistry(t)

	_, err := reg.Register(context.Background(), "t.echo", "1.0.0", `not json`)
	require.Error(t, err)
	assert.Equal(t, qerrors.InvalidSchema, qerrors.ReasonForError(err))

	_, err = reg.Register(context.Background(), "t.echo", "1.0.0", `["object"]`)
	require.Error(t, err)
	assert.Equal(t, qerrors.InvalidSchema, qerrors.ReasonForError(err))

	// A schema without a top-level type keyword is rejected too.
	_, err = reg.Register(context.Background(), "t.echo", "1.0.0", `{"properties": {}}`)
	require.Error(t, err)
	assert.Equal(t, qerrors.InvalidSchema, qerrors.ReasonForError(err))

	// Nothing reached the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownTypeIsNotFound(t *testing.T) {
	reg, mock := newTestRegistry(t)
	mock.ExpectQuery(`SELECT \* FROM task_types`).
		WillReturnRows(sqlmock.NewRows(taskTypeColumns))

	_, err := reg.Get(context.Background(), "t.missing")
	require.Error(t, err)
	assert.True(t, qerrors.IsNotFound(err))
}

func TestGetByIdNotFound(t *testing.T) {
	reg, mock := newTestRegistry(t)
	mock.ExpectQuery(`SELECT \* FROM task_types`).
		WillReturnRows(sqlmock.NewRows(taskTypeColumns))

	_, err := reg.GetById(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, qerrors.IsNotFound(err))
}

func TestListAttachesUsage(t *testing.T) {
	reg, mock := newTestRegistry(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM task_types`).
		WillReturnRows(sqlmock.NewRows(taskTypeColumns).
			AddRow(int64(1), "t.echo", "1.0.0", `{"type": "object"}`, true, now, now).
			AddRow(int64(2), "t.idle", "1.0.0", `{"type": "object"}`, true, now, now))
	mock.ExpectQuery(`SELECT type_id, COUNT\(\*\) AS task_count`).
		WillReturnRows(sqlmock.NewRows([]string{"type_id", "task_count", "last_created"}).
			AddRow(int64(1), 4, now))

	infos, err := reg.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 4, infos[0].TaskCount)
	assert.NotEmpty(t, infos[0].LastCreated)
	// A type with no tasks has zero usage and no last-created time.
	assert.Equal(t, 0, infos[1].TaskCount)
	assert.Empty(t, infos[1].LastCreated)
}

func TestDeactivateUnknownType(t *testing.T) {
	reg, mock := newTestRegistry(t)
	mock.ExpectExec(`UPDATE task_types SET is_active`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := reg.Deactivate(context.Background(), "t.missing")
	require.Error(t, err)
	assert.True(t, qerrors.IsNotFound(err))
}
