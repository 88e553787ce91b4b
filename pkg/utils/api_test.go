/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

func newTestContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/tasks", strings.NewReader(body))
	return c, w
}

func TestRespondEnvelope(t *testing.T) {
	c, w := newTestContext(t, "")
	Respond(c, http.StatusOK, gin.H{"id": 7})

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotZero(t, resp.Timestamp)
	assert.Empty(t, resp.Error)
}

func TestAbortWithApiErrorEnvelope(t *testing.T) {
	c, w := newTestContext(t, "")
	AbortWithApiError(c, qerrors.NewValidation([]string{"msg: required: missing"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, qerrors.Validation, resp.ErrorCode)
	require.Len(t, resp.Details, 1)
	assert.Contains(t, resp.Details[0], "msg")
	assert.True(t, c.IsAborted())
}

func TestAbortWithApiErrorWrapsUnknownErrors(t *testing.T) {
	c, w := newTestContext(t, "")
	AbortWithApiError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), qerrors.InternalError)
}

func TestReadBodyEnforcesCeiling(t *testing.T) {
	config.SetValue("server.max_request_bytes", 16)
	t.Cleanup(func() { config.SetValue("server.max_request_bytes", 1<<20) })

	c, _ := newTestContext(t, `{"msg": "fits"}`)
	data, err := ReadBody(c)
	require.NoError(t, err)
	assert.Equal(t, `{"msg": "fits"}`, string(data))

	c, _ = newTestContext(t, strings.Repeat("x", 17))
	_, err = ReadBody(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, qerrors.CodeForError(err))
}

func TestParseRequestBody(t *testing.T) {
	c, _ := newTestContext(t, `{"worker_id": "w1"}`)
	var out struct {
		WorkerId string `json:"worker_id"`
	}
	require.NoError(t, ParseRequestBody(c, &out))
	assert.Equal(t, "w1", out.WorkerId)

	c, _ = newTestContext(t, "")
	err := ParseRequestBody(c, &out)
	require.Error(t, err)
	assert.True(t, qerrors.IsBadRequest(err))

	c, _ = newTestContext(t, `{broken`)
	err = ParseRequestBody(c, &out)
	require.Error(t, err)
	assert.True(t, qerrors.IsBadRequest(err))
}

func TestParseRequestValueEmptyBodyIsEmptyObject(t *testing.T) {
	c, _ := newTestContext(t, "")
	value, err := ParseRequestValue(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, value)
}
