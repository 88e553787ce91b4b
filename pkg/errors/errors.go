/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
)

// StatusError is the error type surfaced by the core components. It carries
// the HTTP status code, a PrismQ reason code, a human-readable message and
// optional field-level details.
type StatusError struct {
	Code    int      `json:"-"`
	Reason  string   `json:"reason"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error implements the error interface and returns the error message.
func (e *StatusError) Error() string {
	return e.Message
}

// WithDetails appends field-level details and returns the StatusError for chaining.
func (e *StatusError) WithDetails(details ...string) *StatusError {
	e.Details = append(e.Details, details...)
	return e
}

// WithError wraps an underlying error message into the StatusError message.
func (e *StatusError) WithError(err error) *StatusError {
	if err != nil {
		e.Message = fmt.Sprintf("%s: %s", e.Message, err.Error())
	}
	return e
}

// ReasonForError returns the PrismQ reason code of an error, or the empty
// string when the error is not a StatusError.
func ReasonForError(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Reason
	}
	return ""
}

// CodeForError returns the HTTP status code of an error, defaulting to 500
// for errors that are not StatusError.
func CodeForError(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 500
}

// DetailsForError returns the field-level details of an error, if any.
func DetailsForError(err error) []string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Details
	}
	return nil
}
