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
)

// SelectApiEndpoints retrieves the active endpoint definitions that drive
// the data-driven router, in load order.
func (c *Client) SelectApiEndpoints(ctx context.Context) ([]*ApiEndpoint, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	dbTags := GetApiEndpointFieldTags()
	sqlStr, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TApiEndpoint).
		Where(sqrl.Eq{GetFieldTag(dbTags, "IsActive"): true}).
		OrderBy(GetFieldTag(dbTags, "Id") + " " + ASC).
		ToSql()
	if err != nil {
		return nil, err
	}
	var endpoints []*ApiEndpoint
	if err = db.SelectContext(ctx, &endpoints, sqlStr, args...); err != nil {
		klog.ErrorS(err, "failed to select api endpoints")
		return nil, dbutils.ClassifyError(err)
	}
	return endpoints, nil
}

// SelectApiValidations retrieves every per-endpoint validation rule, keyed
// by endpoint id by the caller.
func (c *Client) SelectApiValidations(ctx context.Context) ([]*ApiValidation, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	dbTags := GetApiValidationFieldTags()
	sqlStr, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TApiValidation).
		OrderBy(GetFieldTag(dbTags, "Id") + " " + ASC).
		ToSql()
	if err != nil {
		return nil, err
	}
	var validations []*ApiValidation
	if err = db.SelectContext(ctx, &validations, sqlStr, args...); err != nil {
		klog.ErrorS(err, "failed to select api validations")
		return nil, dbutils.ClassifyError(err)
	}
	return validations, nil
}
