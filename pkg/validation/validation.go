/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package validation enforces the per-endpoint request rules stored in the
// api_validations table. Rules are compiled once at load time; requests are
// checked before their handler runs.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/Nomoos/prismq-taskqueue/pkg/config"
	"github.com/Nomoos/prismq-taskqueue/pkg/database/client"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
	"github.com/Nomoos/prismq-taskqueue/pkg/schema"
)

// Request parameter sources.
const (
	SourceBody   = "body"
	SourceQuery  = "query"
	SourcePath   = "path"
	SourceHeader = "header"
)

// Rules is the decoded rules_json document of one validation row.
type Rules struct {
	Required  bool     `json:"required"`
	Type      string   `json:"type"`
	MinLength *int     `json:"minLength"`
	MaxLength *int     `json:"maxLength"`
	Minimum   *float64 `json:"minimum"`
	Maximum   *float64 `json:"maximum"`
	Pattern   string   `json:"pattern"`
}

// ParamRule is one compiled per-parameter rule.
type ParamRule struct {
	Name    string
	Source  string
	Rules   Rules
	pattern *regexp.Regexp
}

// ValueGetter resolves a named request value from one source. Query, path
// and header values arrive as strings; body values as decoded JSON.
type ValueGetter interface {
	Get(source, name string) (interface{}, bool)
}

// CompileRules converts validation rows into compiled rule sets keyed by
// endpoint id. A malformed rule is a startup error, never a request error.
func CompileRules(rows []*client.ApiValidation) (map[int64][]*ParamRule, error) {
	result := make(map[int64][]*ParamRule)
	for _, row := range rows {
		switch row.Source {
		case SourceBody, SourceQuery, SourcePath, SourceHeader:
		default:
			return nil, fmt.Errorf("validation rule %d: unknown source %q", row.Id, row.Source)
		}
		rule := &ParamRule{Name: row.ParamName, Source: row.Source}
		if err := jsonutil.Unmarshal([]byte(row.RulesJson), &rule.Rules); err != nil {
			return nil, fmt.Errorf("validation rule %d: %v", row.Id, err)
		}
		if rule.Rules.Pattern != "" {
			re, err := regexp.Compile("^(?:" + rule.Rules.Pattern + ")$")
			if err != nil {
				return nil, fmt.Errorf("validation rule %d: invalid pattern: %v", row.Id, err)
			}
			rule.pattern = re
		}
		result[row.EndpointId] = append(result[row.EndpointId], rule)
	}
	return result, nil
}

// Validate checks a request against the endpoint's compiled rules. Each
// parameter fails fast; violations are collected across parameters in rule
// order. A nil return means the request passed.
func Validate(rules []*ParamRule, values ValueGetter) error {
	var violations []schema.Violation
	for _, rule := range rules {
		if violation := rule.check(values); violation != nil {
			violations = append(violations, *violation)
		}
	}
	if len(violations) == 0 {
		return nil
	}
	details := make([]string, 0, len(violations))
	for _, violation := range violations {
		details = append(details, violation.String())
	}
	return qerrors.NewValidation(details)
}

func (r *ParamRule) check(values ValueGetter) *schema.Violation {
	value, present := values.Get(r.Source, r.Name)
	if !present || value == "" {
		if r.Rules.Required {
			return &schema.Violation{
				Path:    r.Name,
				Rule:    "required",
				Message: fmt.Sprintf("%s parameter %s is required", r.Source, r.Name),
			}
		}
		return nil
	}

	coerced, violation := r.coerce(value)
	if violation != nil {
		return violation
	}
	switch val := coerced.(type) {
	case string:
		return r.checkString(val)
	case float64:
		return r.checkNumber(val)
	}
	return nil
}

// coerce applies the declared type. String-borne sources parse numerics and
// booleans from their text form; body values must already carry the right
// JSON kind.
func (r *ParamRule) coerce(value interface{}) (interface{}, *schema.Violation) {
	typeName := r.Rules.Type
	str, isString := value.(string)

	if typeName == "" {
		if isString {
			return str, nil
		}
		if num, ok := asNumber(value); ok {
			return num, nil
		}
		return value, nil
	}

	typeViolation := &schema.Violation{
		Path:    r.Name,
		Rule:    "type",
		Message: fmt.Sprintf("%s parameter %s must be a %s", r.Source, r.Name, typeName),
	}
	switch typeName {
	case "string":
		if !isString {
			return nil, typeViolation
		}
		return str, nil
	case "integer":
		if isString {
			i, err := strconv.ParseInt(str, 10, 64)
			if err != nil {
				return nil, typeViolation
			}
			return float64(i), nil
		}
		if num, ok := asNumber(value); ok && num == float64(int64(num)) {
			return num, nil
		}
		return nil, typeViolation
	case "number":
		if isString {
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return nil, typeViolation
			}
			return f, nil
		}
		if num, ok := asNumber(value); ok {
			return num, nil
		}
		return nil, typeViolation
	case "boolean":
		if isString {
			if _, err := strconv.ParseBool(str); err != nil {
				return nil, typeViolation
			}
			return true, nil
		}
		if _, ok := value.(bool); ok {
			return value, nil
		}
		return nil, typeViolation
	}
	return value, nil
}

func (r *ParamRule) checkString(val string) *schema.Violation {
	length := utf8.RuneCountInString(val)
	if r.Rules.MinLength != nil && length < *r.Rules.MinLength {
		return &schema.Violation{
			Path:    r.Name,
			Rule:    "minLength",
			Message: fmt.Sprintf("length %d is below the minimum %d", length, *r.Rules.MinLength),
		}
	}
	if r.Rules.MaxLength != nil && length > *r.Rules.MaxLength {
		return &schema.Violation{
			Path:    r.Name,
			Rule:    "maxLength",
			Message: fmt.Sprintf("length %d exceeds the maximum %d", length, *r.Rules.MaxLength),
		}
	}
	if r.pattern != nil {
		// The same input byte cap as the schema validator bounds regexp time.
		if limit := config.GetMaxPatternInputBytes(); len(val) > limit {
			return &schema.Violation{
				Path:    r.Name,
				Rule:    "pattern",
				Message: fmt.Sprintf("value exceeds the %d byte pattern input limit", limit),
			}
		}
		if !r.pattern.MatchString(val) {
			return &schema.Violation{
				Path:    r.Name,
				Rule:    "pattern",
				Message: fmt.Sprintf("value does not match pattern %q", r.Rules.Pattern),
			}
		}
	}
	return nil
}

func (r *ParamRule) checkNumber(val float64) *schema.Violation {
	if r.Rules.Minimum != nil && val < *r.Rules.Minimum {
		return &schema.Violation{
			Path:    r.Name,
			Rule:    "minimum",
			Message: fmt.Sprintf("value %v is below the minimum %v", val, *r.Rules.Minimum),
		}
	}
	if r.Rules.Maximum != nil && val > *r.Rules.Maximum {
		return &schema.Violation{
			Path:    r.Name,
			Rule:    "maximum",
			Message: fmt.Sprintf("value %v exceeds the maximum %v", val, *r.Rules.Maximum),
		}
	}
	return nil
}

func asNumber(value interface{}) (float64, bool) {
	switch val := value.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}
