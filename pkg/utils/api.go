/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package utils carries the HTTP response envelope and request helpers
// shared by every handler package.
package utils

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/timeutil"
)

// ApiResponse is the uniform response envelope. Success responses carry
// data; error responses carry the error code, message and ordered details.
type ApiResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Respond writes a success envelope with the given payload.
func Respond(c *gin.Context, code int, data interface{}) {
	c.JSON(code, ApiResponse{
		Success:   true,
		Data:      data,
		Timestamp: timeutil.UnixSeconds(),
	})
}

// RespondMessage writes a success envelope carrying only a message.
func RespondMessage(c *gin.Context, code int, message string) {
	c.JSON(code, ApiResponse{
		Success:   true,
		Message:   message,
		Timestamp: timeutil.UnixSeconds(),
	})
}

// AbortWithApiError converts the error into the envelope, records it on the
// gin context for the audit log, and aborts the request.
func AbortWithApiError(c *gin.Context, err error) {
	_ = c.Error(err)
	statusErr := qerrors.AsStatusError(err)
	c.AbortWithStatusJSON(statusErr.Code, ApiResponse{
		Success:   false,
		Error:     statusErr.Message,
		ErrorCode: statusErr.Reason,
		Details:   statusErr.Details,
		Timestamp: timeutil.UnixSeconds(),
	})
}

// ReadBody drains the request body under the configured byte ceiling.
// Oversize bodies surface as 413 before any validation runs.
func ReadBody(c *gin.Context) ([]byte, error) {
	maxBytes := config.GetMaxRequestBytes()
	limited := &io.LimitedReader{R: c.Request.Body, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, qerrors.NewBadRequest("failed to read the request body")
	}
	if int64(len(data)) > maxBytes {
		return nil, qerrors.NewRequestEntityTooLargeError("the request body exceeds the limit")
	}
	return data, nil
}

// ParseRequestBody decodes the bounded JSON request body into out.
func ParseRequestBody(c *gin.Context, out interface{}) error {
	data, err := ReadBody(c)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return qerrors.NewBadRequest("the request body is empty")
	}
	if err = jsonutil.Unmarshal(data, out); err != nil {
		return qerrors.NewBadRequest("the request body is not valid JSON")
	}
	return nil
}

// ParseRequestValue decodes the bounded body into a generic JSON value.
func ParseRequestValue(c *gin.Context) (interface{}, error) {
	data, err := ReadBody(c)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]interface{}{}, nil
	}
	value, err := jsonutil.UnmarshalValue(data)
	if err != nil {
		return nil, qerrors.NewBadRequest("the request body is not valid JSON")
	}
	return value, nil
}
