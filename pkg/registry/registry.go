/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package registry manages the catalog of task types: named, versioned
// parameter schemas that submissions are validated against.
package registry

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/schema"
	"github.com/Nomoos/prismq-taskqueue/pkg/timeutil"
)

// Registry is the catalog of task types backed by the task_types table.
type Registry struct {
	db *client.Client
}

// NewRegistry creates a registry on the shared database client.
func NewRegistry(db *client.Client) *Registry {
	return &Registry{db: db}
}

// TypeInfo is a task type together with its on-demand usage statistics.
type TypeInfo struct {
	*client.TaskType
	TaskCount   int    `json:"task_count"`
	LastCreated string `json:"last_created,omitempty"`
}

// Register creates or updates a task type. The schema document must be a
// JSON object with a top-level type keyword; re-registration bumps version
// and schema and re-activates a deactivated type.
func (r *Registry) Register(ctx context.Context, name, version, schemaDoc string) (*client.TaskType, error) {
	if name == "" {
		return nil, qerrors.NewBadRequest("the task type name is empty")
	}
	if err := schema.CheckSchemaDoc(schemaDoc); err != nil {
		return nil, err
	}
	taskType := &client.TaskType{
		Name:        name,
		Version:     version,
		ParamSchema: schemaDoc,
		IsActive:    true,
	}
	if err := r.db.UpsertTaskType(ctx, taskType); err != nil {
		return nil, err
	}
	// The OnConflict path does not report the surviving row id; read it back.
	return r.db.GetTaskTypeByName(ctx, name)
}

// Get retrieves a task type by name, active or not. Callers decide whether
// an inactive type is acceptable for their operation.
func (r *Registry) Get(ctx context.Context, name string) (*client.TaskType, error) {
	return r.db.GetTaskTypeByName(ctx, name)
}

// GetById retrieves a task type by its numeric id.
func (r *Registry) GetById(ctx context.Context, id int64) (*client.TaskType, error) {
	return r.db.GetTaskType(ctx, id)
}

// List retrieves task types with usage statistics attached. With activeOnly
// set, deactivated types are filtered out.
func (r *Registry) List(ctx context.Context, activeOnly bool) ([]*TypeInfo, error) {
	dbTags := client.GetTaskTypeFieldTags()
	query := sqrl.And{}
	if activeOnly {
		query = append(query, sqrl.Eq{client.GetFieldTag(dbTags, "IsActive"): true})
	}
	orderBy := []string{client.GetFieldTag(dbTags, "Name") + " " + client.ASC}
	taskTypes, err := r.db.SelectTaskTypes(ctx, query, orderBy, 0, 0)
	if err != nil {
		return nil, err
	}

	usage, err := r.db.SelectTaskTypeUsage(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to load task type usage")
		return nil, err
	}
	infos := make([]*TypeInfo, 0, len(taskTypes))
	for _, taskType := range taskTypes {
		info := &TypeInfo{TaskType: taskType}
		if stats, ok := usage[taskType.Id]; ok {
			info.TaskCount = stats.TaskCount
			if stats.LastCreated.Valid {
				info.LastCreated = timeutil.FormatRFC3339(stats.LastCreated.Time)
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Deactivate soft-deletes a task type. Existing tasks of the type keep
// running; new submissions are rejected until it is re-registered.
func (r *Registry) Deactivate(ctx context.Context, name string) error {
	if name == "" {
		return qerrors.NewBadRequest("the task type name is empty")
	}
	return r.db.SetTaskTypeActive(ctx, name, false)
}
