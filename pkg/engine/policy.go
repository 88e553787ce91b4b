/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"fmt"
	"strings"

	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

// claimSortColumns whitelists the task columns a claim request may sort by.
// Sort fragments reach the SQL builder as raw strings, so only these mapped
// values may ever be used.
var claimSortColumns = map[string]string{
	"created_at": "t.created_at",
	"priority":   "t.priority",
	"id":         "t.id",
	"attempts":   "t.attempts",
}

// defaultClaimOrder is applied when a claim names no sort: oldest first,
// with id as the stable tie-break. Priority ordering is opt-in via sort_by.
var defaultClaimOrder = []string{
	"t.created_at " + client.ASC,
	"t.id " + client.ASC,
}

// BuildClaimOrder converts the sort parameters of a claim request into
// ORDER BY fragments. Unknown columns and directions are rejected rather
// than silently corrected.
func BuildClaimOrder(sortBy, sortOrder string) ([]string, error) {
	if sortBy == "" && sortOrder == "" {
		return defaultClaimOrder, nil
	}
	if sortBy == "" {
		return nil, qerrors.NewBadRequest("sort_order requires sort_by")
	}
	column, ok := claimSortColumns[sortBy]
	if !ok {
		return nil, qerrors.NewBadRequest(fmt.Sprintf("unsupported sort_by %q", sortBy))
	}
	direction := client.ASC
	if sortOrder != "" {
		switch strings.ToUpper(sortOrder) {
		case client.ASC:
			direction = client.ASC
		case client.DESC:
			direction = client.DESC
		default:
			return nil, qerrors.NewBadRequest(fmt.Sprintf("unsupported sort_order %q", sortOrder))
		}
	}
	// The id tie-break keeps concurrent claimers from contending on equal keys.
	return []string{column + " " + direction, "t.id " + client.ASC}, nil
}
