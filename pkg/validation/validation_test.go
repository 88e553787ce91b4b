/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

// mapValues is a ValueGetter over literal maps, keyed by source.
type mapValues map[string]map[string]interface{}

func (m mapValues) Get(source, name string) (interface{}, bool) {
	values, ok := m[source]
	if !ok {
		return nil, false
	}
	value, ok := values[name]
	return value, ok
}

func compile(t *testing.T, rows ...*client.ApiValidation) map[int64][]*ParamRule {
	t.Helper()
	rules, err := CompileRules(rows)
	require.NoError(t, err)
	return rules
}

func TestCompileRulesRejectsBadInput(t *testing.T) {
	_, err := CompileRules([]*client.ApiValidation{
		{Id: 1, EndpointId: 1, ParamName: "x", Source: "cookie", RulesJson: `{}`},
	})
	assert.ErrorContains(t, err, "unknown source")

	_, err = CompileRules([]*client.ApiValidation{
		{Id: 2, EndpointId: 1, ParamName: "x", Source: SourceBody, RulesJson: `{broken`},
	})
	assert.Error(t, err)

	_, err = CompileRules([]*client.ApiValidation{
		{Id: 3, EndpointId: 1, ParamName: "x", Source: SourceBody, RulesJson: `{"pattern": "["}`},
	})
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestValidateRequired(t *testing.T) {
	rules := compile(t, &client.ApiValidation{
		Id: 1, EndpointId: 1, ParamName: "worker_id", Source: SourceBody,
		RulesJson: `{"required": true, "type": "string", "minLength": 1}`,
	})

	err := Validate(rules[1], mapValues{"body": {"worker_id": "w1"}})
	assert.NoError(t, err)

	err = Validate(rules[1], mapValues{"body": {}})
	require.Error(t, err)
	assert.True(t, qerrors.IsValidation(err))
	assert.Contains(t, qerrors.DetailsForError(err)[0], "required")

	// An empty string counts as missing.
	err = Validate(rules[1], mapValues{"body": {"worker_id": ""}})
	require.Error(t, err)
}

func TestValidateTypeCoercionFromStrings(t *testing.T) {
	rules := compile(t, &client.ApiValidation{
		Id: 1, EndpointId: 1, ParamName: "limit", Source: SourceQuery,
		RulesJson: `{"type": "integer", "minimum": 1, "maximum": 500}`,
	})

	assert.NoError(t, Validate(rules[1], mapValues{"query": {"limit": "50"}}))

	err := Validate(rules[1], mapValues{"query": {"limit": "abc"}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "type")

	err = Validate(rules[1], mapValues{"query": {"limit": "0"}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "minimum")

	err = Validate(rules[1], mapValues{"query": {"limit": "1000"}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "maximum")
}

func TestValidateBodyNumberKinds(t *testing.T) {
	rules := compile(t, &client.ApiValidation{
		Id: 1, EndpointId: 1, ParamName: "priority", Source: SourceBody,
		RulesJson: `{"type": "integer"}`,
	})

	assert.NoError(t, Validate(rules[1], mapValues{"body": {"priority": float64(5)}}))

	err := Validate(rules[1], mapValues{"body": {"priority": float64(5.5)}})
	require.Error(t, err)
}

func TestValidateStringRules(t *testing.T) {
	rules := compile(t, &client.ApiValidation{
		Id: 1, EndpointId: 1, ParamName: "name", Source: SourceBody,
		RulesJson: `{"type": "string", "minLength": 3, "maxLength": 8, "pattern": "[a-z.]+"}`,
	})

	assert.NoError(t, Validate(rules[1], mapValues{"body": {"name": "t.echo"}}))

	err := Validate(rules[1], mapValues{"body": {"name": "ab"}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "minLength")

	err = Validate(rules[1], mapValues{"body": {"name": "UPPER.X"}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "pattern")
}

func TestValidatePatternInputCap(t *testing.T) {
	config.SetValue("schema.max_pattern_input_bytes", 8)
	t.Cleanup(func() { config.SetValue("schema.max_pattern_input_bytes", 10*1024) })

	rules := compile(t, &client.ApiValidation{
		Id: 1, EndpointId: 1, ParamName: "name", Source: SourceBody,
		RulesJson: `{"type": "string", "pattern": "a+"}`,
	})

	assert.NoError(t, Validate(rules[1], mapValues{"body": {"name": "aaaa"}}))

	err := Validate(rules[1], mapValues{"body": {"name": strings.Repeat("a", 9)}})
	require.Error(t, err)
	assert.Contains(t, qerrors.DetailsForError(err)[0], "limit")
}

func TestValidateCollectsAcrossParams(t *testing.T) {
	rules := compile(t,
		&client.ApiValidation{
			Id: 1, EndpointId: 1, ParamName: "worker_id", Source: SourceBody,
			RulesJson: `{"required": true}`,
		},
		&client.ApiValidation{
			Id: 2, EndpointId: 1, ParamName: "progress", Source: SourceBody,
			RulesJson: `{"required": true, "type": "integer"}`,
		})

	err := Validate(rules[1], mapValues{"body": {}})
	require.Error(t, err)
	details := qerrors.DetailsForError(err)
	require.Len(t, details, 2)
	assert.Contains(t, details[0], "worker_id")
	assert.Contains(t, details[1], "progress")
}

func TestValidateGroupsByEndpoint(t *testing.T) {
	rules := compile(t,
		&client.ApiValidation{Id: 1, EndpointId: 1, ParamName: "a", Source: SourceQuery, RulesJson: `{}`},
		&client.ApiValidation{Id: 2, EndpointId: 2, ParamName: "b", Source: SourceQuery, RulesJson: `{}`},
	)
	assert.Len(t, rules[1], 1)
	assert.Len(t, rules[2], 1)
}
