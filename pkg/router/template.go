/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// templatePattern matches one value template: {{source.key}} or
// {{source.key:default}}.
var templatePattern = regexp.MustCompile(`^\{\{(path|query|header)\.([A-Za-z0-9_-]+)(?::([^}]*))?\}\}$`)

// Template is a parsed value template. Templates are parsed once at startup
// and evaluated per request; a string without template syntax evaluates to
// itself.
type Template struct {
	Source  string
	Key     string
	Default string
	literal string
}

// ParseTemplate parses a value template. Text containing template braces
// that does not parse is a startup error; plain text becomes a literal.
func ParseTemplate(text string) (*Template, error) {
	if !strings.Contains(text, "{{") {
		return &Template{literal: text}, nil
	}
	m := templatePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("malformed value template %q", text)
	}
	return &Template{Source: m[1], Key: m[2], Default: m[3]}, nil
}

// MustParseTemplate parses a template that is known valid at compile time.
func MustParseTemplate(text string) *Template {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Eval resolves the template against one request. Missing values fall back
// to the template default.
func (t *Template) Eval(c *gin.Context) string {
	if t.Source == "" {
		return t.literal
	}
	var value string
	switch t.Source {
	case "path":
		value = c.Param(t.Key)
	case "query":
		value = c.Query(t.Key)
	case "header":
		value = c.GetHeader(t.Key)
	}
	if value == "" {
		return t.Default
	}
	return value
}
