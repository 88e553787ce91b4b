/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

func TestBuildClaimOrderDefault(t *testing.T) {
	// A claim naming no sort gets oldest-first ordering.
	orderBy, err := BuildClaimOrder("", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"t.created_at ASC", "t.id ASC"}, orderBy)
}

func TestBuildClaimOrderWhitelist(t *testing.T) {
	testCases := []struct {
		name      string
		sortBy    string
		sortOrder string
		expected  []string
		wantErr   bool
	}{
		{"created_at asc", "created_at", "ASC", []string{"t.created_at ASC", "t.id ASC"}, false},
		{"priority desc", "priority", "DESC", []string{"t.priority DESC", "t.id ASC"}, false},
		{"case insensitive order", "id", "desc", []string{"t.id DESC", "t.id ASC"}, false},
		{"attempts defaults asc", "attempts", "", []string{"t.attempts ASC", "t.id ASC"}, false},
		{"unknown column", "claimed_by", "ASC", nil, true},
		{"injection attempt", "id; DROP TABLE tasks", "ASC", nil, true},
		{"unknown direction", "id", "SIDEWAYS", nil, true},
		{"order without column", "", "DESC", nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orderBy, err := BuildClaimOrder(tc.sortBy, tc.sortOrder)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, qerrors.IsBadRequest(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, orderBy)
		})
	}
}
