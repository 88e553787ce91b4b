/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

var endpointColumns = []string{
	"id", "method", "path", "action_kind", "action_name", "description", "is_active", "created_at",
}

var validationColumns = []string{"id", "endpoint_id", "param_name", "source", "rules_json"}

func newMockDB(t *testing.T) (*client.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return client.NewClientWithDB(sqlx.NewDb(db, "postgres"), nil), mock
}

func expectEndpointLoad(mock sqlmock.Sqlmock, endpoints *sqlmock.Rows, validations *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT \* FROM api_endpoints`).WillReturnRows(endpoints)
	mock.ExpectQuery(`SELECT \* FROM api_validations`).WillReturnRows(validations)
}

func TestInstallDispatchesToBoundAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "GET", "/ping/:id", "query", "ping", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns))

	r := NewRouter(dbClient, map[string]Action{
		"ping": {Kind: ActionQuery, Handle: func(c *gin.Context) (interface{}, error) {
			return gin.H{"id": c.Param("id")}, nil
		}},
	})
	e := gin.New()
	require.NoError(t, r.Install(context.Background(), e))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest("GET", "/ping/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"id":"7"`)
}

func TestInstallRejectsUnknownAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "GET", "/ping", "query", "missing", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns))

	r := NewRouter(dbClient, map[string]Action{})
	err := r.Install(context.Background(), gin.New())
	assert.ErrorContains(t, err, `unknown action "missing"`)
}

func TestInstallRejectsKindMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "POST", "/things", "insert", "thing.create", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns))

	r := NewRouter(dbClient, map[string]Action{
		"thing.create": {Kind: ActionQuery, Handle: func(c *gin.Context) (interface{}, error) {
			return nil, nil
		}},
	})
	err := r.Install(context.Background(), gin.New())
	assert.ErrorContains(t, err, "is query, not insert")
}

func TestInstallRejectsUnknownKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "GET", "/ping", "reflect", "ping", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns))

	r := NewRouter(dbClient, map[string]Action{})
	err := r.Install(context.Background(), gin.New())
	assert.ErrorContains(t, err, "unknown action kind")
}

func TestDispatchRunsValidationBeforeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "POST", "/things", "insert", "thing.create", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns).
			AddRow(int64(1), int64(1), "name", "body", `{"required": true, "type": "string"}`))

	handlerRan := false
	r := NewRouter(dbClient, map[string]Action{
		"thing.create": {Kind: ActionInsert, Handle: func(c *gin.Context) (interface{}, error) {
			handlerRan = true
			return gin.H{}, nil
		}},
	})
	e := gin.New()
	require.NoError(t, r.Install(context.Background(), e))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest("POST", "/things", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, handlerRan)
	assert.Contains(t, w.Body.String(), "required")

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest("POST", "/things", strings.NewReader(`{"name": "x"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerRan)
}

func TestDispatchTranslatesHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbClient, mock := newMockDB(t)
	expectEndpointLoad(mock,
		sqlmock.NewRows(endpointColumns).
			AddRow(int64(1), "GET", "/gone", "query", "gone", nil, true, time.Now()),
		sqlmock.NewRows(validationColumns))

	r := NewRouter(dbClient, map[string]Action{
		"gone": {Kind: ActionQuery, Handle: func(c *gin.Context) (interface{}, error) {
			return nil, qerrors.NewTaskNotFound(7)
		}},
	})
	e := gin.New()
	require.NoError(t, r.Install(context.Background(), e))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest("GET", "/gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), qerrors.TaskNotFound)
}
