/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package router

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Template
		wantErr  bool
	}{
		{"path source", "{{path.id}}", Template{Source: "path", Key: "id"}, false},
		{"query with default", "{{query.limit:50}}", Template{Source: "query", Key: "limit", Default: "50"}, false},
		{"header source", "{{header.X-Worker-Id}}", Template{Source: "header", Key: "X-Worker-Id"}, false},
		{"empty default", "{{query.status:}}", Template{Source: "query", Key: "status"}, false},
		{"unknown source", "{{body.id}}", Template{}, true},
		{"unbalanced braces", "{{path.id", Template{}, true},
		{"trailing text", "{{path.id}}-suffix", Template{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := ParseTemplate(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.Source, tpl.Source)
			assert.Equal(t, tc.expected.Key, tpl.Key)
			assert.Equal(t, tc.expected.Default, tpl.Default)
		})
	}
}

func TestParseTemplateLiteral(t *testing.T) {
	tpl, err := ParseTemplate("plain")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "plain", tpl.Eval(c))
}

func TestTemplateEval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/tasks?limit=10", nil)
	c.Request.Header.Set("X-Worker-Id", "w1")
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	assert.Equal(t, "7", MustParseTemplate("{{path.id}}").Eval(c))
	assert.Equal(t, "10", MustParseTemplate("{{query.limit:50}}").Eval(c))
	assert.Equal(t, "0", MustParseTemplate("{{query.offset:0}}").Eval(c))
	assert.Equal(t, "w1", MustParseTemplate("{{header.X-Worker-Id}}").Eval(c))
	assert.Equal(t, "", MustParseTemplate("{{query.status:}}").Eval(c))
}
