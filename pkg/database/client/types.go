/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	DESC = "DESC"
	ASC  = "ASC"
)

// Task status values. A task moves pending -> claimed -> {completed, failed,
// pending}; completed and failed are terminal.
const (
	TaskStatusPending   = "pending"
	TaskStatusClaimed   = "claimed"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

type Task struct {
	Id           int64          `db:"id" gorm:"column:id;primaryKey"`
	TypeId       int64          `db:"type_id" gorm:"column:type_id"`
	Status       string         `db:"status" gorm:"column:status"`
	ParamsJson   string         `db:"params_json" gorm:"column:params_json"`
	DedupeKey    string         `db:"dedupe_key" gorm:"column:dedupe_key"`
	ResultJson   sql.NullString `db:"result_json" gorm:"column:result_json"`
	ErrorMessage sql.NullString `db:"error_message" gorm:"column:error_message"`
	Priority     int            `db:"priority" gorm:"column:priority"`
	Progress     int            `db:"progress" gorm:"column:progress"`
	Attempts     int            `db:"attempts" gorm:"column:attempts"`
	ClaimedBy    sql.NullString `db:"claimed_by" gorm:"column:claimed_by"`
	ClaimedAt    pq.NullTime    `db:"claimed_at" gorm:"column:claimed_at"`
	CompletedAt  pq.NullTime    `db:"completed_at" gorm:"column:completed_at"`
	CreatedAt    time.Time      `db:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time      `db:"updated_at" gorm:"column:updated_at"`
}

// TableName binds the gorm model to the tasks relation.
func (Task) TableName() string {
	return TTask
}

// IsTerminal reports whether the task reached a terminal status.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// GetTaskFieldTags returns the TaskFieldTags value.
func GetTaskFieldTags() map[string]string {
	t := Task{}
	return getFieldTags(t)
}

type TaskType struct {
	Id          int64     `db:"id" gorm:"column:id;primaryKey"`
	Name        string    `db:"name" gorm:"column:name"`
	Version     string    `db:"version" gorm:"column:version"`
	ParamSchema string    `db:"param_schema" gorm:"column:param_schema"`
	IsActive    bool      `db:"is_active" gorm:"column:is_active"`
	CreatedAt   time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt   time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName binds the gorm model to the task_types relation.
func (TaskType) TableName() string {
	return TTaskType
}

// GetTaskTypeFieldTags returns the TaskTypeFieldTags value.
func GetTaskTypeFieldTags() map[string]string {
	t := TaskType{}
	return getFieldTags(t)
}

// TaskTypeUsage joins a task type with its on-demand usage aggregation.
type TaskTypeUsage struct {
	TypeId      int64       `db:"type_id"`
	TaskCount   int         `db:"task_count"`
	LastCreated pq.NullTime `db:"last_created"`
}

type TaskHistory struct {
	Id           int64          `db:"id"`
	TaskId       int64          `db:"task_id"`
	StatusChange string         `db:"status_change"`
	WorkerId     sql.NullString `db:"worker_id"`
	Message      sql.NullString `db:"message"`
	CreatedAt    time.Time      `db:"created_at"`
}

// GetTaskHistoryFieldTags returns the TaskHistoryFieldTags value.
func GetTaskHistoryFieldTags() map[string]string {
	h := TaskHistory{}
	return getFieldTags(h)
}

type ApiEndpoint struct {
	Id          int64          `db:"id"`
	Method      string         `db:"method"`
	Path        string         `db:"path"`
	ActionKind  string         `db:"action_kind"`
	ActionName  string         `db:"action_name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
}

// GetApiEndpointFieldTags returns the ApiEndpointFieldTags value.
func GetApiEndpointFieldTags() map[string]string {
	e := ApiEndpoint{}
	return getFieldTags(e)
}

type ApiValidation struct {
	Id         int64  `db:"id"`
	EndpointId int64  `db:"endpoint_id"`
	ParamName  string `db:"param_name"`
	Source     string `db:"source"`
	RulesJson  string `db:"rules_json"`
}

// GetApiValidationFieldTags returns the ApiValidationFieldTags value.
func GetApiValidationFieldTags() map[string]string {
	v := ApiValidation{}
	return getFieldTags(v)
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection
// Iterates through struct fields and builds column and value lists
// Skips fields with specified ignoreTag
// Returns formatted SQL command with columns and values
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
