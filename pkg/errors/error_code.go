/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const PrismQPrefix = "PrismQ."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Task-related errors
   02: Task-type-related errors
   03: Storage-related errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError         = PrismQPrefix + "00001"
	BadRequest            = PrismQPrefix + "00002"
	Unauthorized          = PrismQPrefix + "00003"
	NotFound              = PrismQPrefix + "00004"
	AlreadyExist          = PrismQPrefix + "00005"
	RequestEntityTooLarge = PrismQPrefix + "00006"
	Validation            = PrismQPrefix + "00007"
)

// task: 01xxx
const (
	TaskNotFound = PrismQPrefix + "01001"
	WrongState   = PrismQPrefix + "01002"
	WrongOwner   = PrismQPrefix + "01003"
)

// task type: 02xxx
const (
	TaskTypeNotFound = PrismQPrefix + "02001"
	InvalidSchema    = PrismQPrefix + "02002"
)

// storage: 03xxx
const (
	UniqueViolation = PrismQPrefix + "03001"
	ForeignKey      = PrismQPrefix + "03002"
	Deadlock        = PrismQPrefix + "03003"
	Transient       = PrismQPrefix + "03004"
	Fatal           = PrismQPrefix + "03005"
)

// IsPrismQ returns true if the specified error carries a PrismQ reason code.
func IsPrismQ(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(ReasonForError(err), PrismQPrefix)
}

func IsBadRequest(err error) bool {
	return ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return ReasonForError(err) == InternalError
}

func IsValidation(err error) bool {
	return ReasonForError(err) == Validation
}

func IsNotFound(err error) bool {
	reason := ReasonForError(err)
	return reason == NotFound || reason == TaskNotFound || reason == TaskTypeNotFound
}

func IsUnauthorized(err error) bool {
	return ReasonForError(err) == Unauthorized
}

func IsConflict(err error) bool {
	reason := ReasonForError(err)
	return reason == AlreadyExist || reason == WrongState || reason == WrongOwner
}

func IsWrongState(err error) bool {
	return ReasonForError(err) == WrongState
}

func IsWrongOwner(err error) bool {
	return ReasonForError(err) == WrongOwner
}

func IsUniqueViolation(err error) bool {
	return ReasonForError(err) == UniqueViolation
}

func IsDeadlock(err error) bool {
	return ReasonForError(err) == Deadlock
}

func IsTransient(err error) bool {
	reason := ReasonForError(err)
	return reason == Transient || reason == Deadlock
}

func IsFatal(err error) bool {
	return ReasonForError(err) == Fatal
}

// IgnoreNotFound swallows not-found errors and surfaces everything else.
func IgnoreNotFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsPrismQ(err) {
		return ""
	}
	return ReasonForError(err)
}

func NewBadRequest(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}
}

func NewInternalError(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}
}

func NewUnauthorized(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
	}
}

func NewNotFoundWithMessage(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}
}

func NewTaskNotFound(id int64) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  TaskNotFound,
		Message: fmt.Sprintf("task %d not found", id),
	}
}

func NewTaskTypeNotFound(name string) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  TaskTypeNotFound,
		Message: fmt.Sprintf("task type %s not found or inactive", name),
	}
}

func NewAlreadyExist(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}
}

func NewWrongState(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusConflict,
		Reason:  WrongState,
		Message: message,
	}
}

func NewWrongOwner(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusConflict,
		Reason:  WrongOwner,
		Message: message,
	}
}

func NewRequestEntityTooLargeError(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusRequestEntityTooLarge,
		Reason:  RequestEntityTooLarge,
		Message: fmt.Sprintf("Request entity is too large: %s", message),
	}
}

// NewValidation builds a 400 carrying the ordered list of field violations.
func NewValidation(details []string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadRequest,
		Reason:  Validation,
		Message: "the request parameters failed validation",
		Details: details,
	}
}

func NewInvalidSchema(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadRequest,
		Reason:  InvalidSchema,
		Message: fmt.Sprintf("invalid param schema. %s", message),
	}
}

func NewUniqueViolation(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusConflict,
		Reason:  UniqueViolation,
		Message: message,
	}
}

func NewForeignKey(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusConflict,
		Reason:  ForeignKey,
		Message: message,
	}
}

func NewDeadlock(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusInternalServerError,
		Reason:  Deadlock,
		Message: message,
	}
}

func NewTransient(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusInternalServerError,
		Reason:  Transient,
		Message: message,
	}
}

func NewFatal(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusInternalServerError,
		Reason:  Fatal,
		Message: message,
	}
}

// AsStatusError converts any error into a StatusError, wrapping unknown
// errors as internal errors.
func AsStatusError(err error) *StatusError {
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	return NewInternalError(err.Error())
}
