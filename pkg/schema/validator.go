/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package schema validates task parameters against a stored JSON-Schema
// document. Only the Draft-07 subset used by task types is supported: type,
// required, properties, minLength, maxLength, minimum, maximum, pattern,
// enum, items and default.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
	"github.com/Nomoos/prismq-taskqueue/pkg/jsonutil"
)

// Violation describes one failed rule at a JSON path. Violations are
// reported in a stable order: fail-fast per field, collected across fields.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// String renders the violation for the error envelope details list.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Rule, v.Message)
}

// Validator checks JSON values against schema documents. The pattern input
// cap bounds worst-case regexp time on hostile inputs.
type Validator struct {
	maxPatternInput int
}

// NewValidator creates a Validator with the given pattern input byte cap.
// A non-positive cap falls back to 10 KiB.
func NewValidator(maxPatternInput int) *Validator {
	if maxPatternInput <= 0 {
		maxPatternInput = 10 * 1024
	}
	return &Validator{maxPatternInput: maxPatternInput}
}

// CheckSchemaDoc verifies that a schema document parses as a JSON object
// with a top-level type keyword. Called by the registry before a schema is
// stored.
func CheckSchemaDoc(doc string) error {
	parsed, err := jsonutil.UnmarshalValue([]byte(doc))
	if err != nil {
		return qerrors.NewInvalidSchema(err.Error())
	}
	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return qerrors.NewInvalidSchema("the schema must be a JSON object")
	}
	if _, ok = obj["type"].(string); !ok {
		return qerrors.NewInvalidSchema("the schema must declare a top-level type")
	}
	return nil
}

// Validate checks value against the schema document. On success it returns
// the value with defaults filled in; otherwise the ordered violation list.
// A malformed schema document is a fatal error, not a violation.
func (v *Validator) Validate(value interface{}, schemaDoc string) (interface{}, []Violation, error) {
	parsed, err := jsonutil.UnmarshalValue([]byte(schemaDoc))
	if err != nil {
		return nil, nil, qerrors.NewFatal(fmt.Sprintf("stored schema does not parse: %v", err))
	}
	schemaObj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, nil, qerrors.NewFatal("stored schema is not a JSON object")
	}
	result, violations := v.validateNode("", value, schemaObj)
	return result, violations, nil
}

// validateNode applies the schema keywords to one value. It returns the
// value (with defaults applied below it) and stops at the first violation
// for this path.
func (v *Validator) validateNode(path string, value interface{}, schemaObj map[string]interface{}) (interface{}, []Violation) {
	if typeName, ok := schemaObj["type"].(string); ok {
		if !kindMatches(typeName, value) {
			return value, []Violation{{
				Path:    path,
				Rule:    "type",
				Message: fmt.Sprintf("expected %s, got %s", typeName, kindOf(value)),
			}}
		}
	}

	if enum, ok := schemaObj["enum"].([]interface{}); ok {
		if violation := checkEnum(path, value, enum); violation != nil {
			return value, []Violation{*violation}
		}
	}

	switch val := value.(type) {
	case string:
		if violation := v.checkString(path, val, schemaObj); violation != nil {
			return value, []Violation{*violation}
		}
	case json.Number, float64, int, int64:
		if violation := checkNumberBounds(path, value, schemaObj); violation != nil {
			return value, []Violation{*violation}
		}
	case map[string]interface{}:
		return v.validateObject(path, val, schemaObj)
	case []interface{}:
		return v.validateArray(path, val, schemaObj)
	}
	return value, nil
}

// validateObject checks required properties, recurses into declared
// properties and fills in defaults for absent ones. Each field fails fast;
// violations are collected across fields in required order, then property
// name order.
func (v *Validator) validateObject(path string, obj map[string]interface{}, schemaObj map[string]interface{}) (interface{}, []Violation) {
	var violations []Violation

	if required, ok := schemaObj["required"].([]interface{}); ok {
		for _, raw := range required {
			name, ok := raw.(string)
			if !ok {
				continue
			}
			if _, present := obj[name]; !present {
				violations = append(violations, Violation{
					Path:    joinPath(path, name),
					Rule:    "required",
					Message: fmt.Sprintf("property %s is required", name),
				})
			}
		}
	}

	properties, _ := schemaObj["properties"].(map[string]interface{})
	for _, name := range sortedKeys(properties) {
		sub, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		propValue, present := obj[name]
		if !present {
			if def, hasDefault := sub["default"]; hasDefault {
				obj[name] = def
			}
			continue
		}
		updated, propViolations := v.validateNode(joinPath(path, name), propValue, sub)
		if len(propViolations) > 0 {
			violations = append(violations, propViolations...)
			continue
		}
		obj[name] = updated
	}
	return obj, violations
}

// validateArray validates every element against the items schema.
func (v *Validator) validateArray(path string, arr []interface{}, schemaObj map[string]interface{}) (interface{}, []Violation) {
	items, ok := schemaObj["items"].(map[string]interface{})
	if !ok {
		return arr, nil
	}
	var violations []Violation
	for i, item := range arr {
		updated, itemViolations := v.validateNode(fmt.Sprintf("%s[%d]", path, i), item, items)
		if len(itemViolations) > 0 {
			violations = append(violations, itemViolations...)
			continue
		}
		arr[i] = updated
	}
	return arr, violations
}

func (v *Validator) checkString(path, val string, schemaObj map[string]interface{}) *Violation {
	length := utf8.RuneCountInString(val)
	if min, ok := intKeyword(schemaObj, "minLength"); ok && length < min {
		return &Violation{
			Path:    path,
			Rule:    "minLength",
			Message: fmt.Sprintf("length %d is below the minimum %d", length, min),
		}
	}
	if max, ok := intKeyword(schemaObj, "maxLength"); ok && length > max {
		return &Violation{
			Path:    path,
			Rule:    "maxLength",
			Message: fmt.Sprintf("length %d exceeds the maximum %d", length, max),
		}
	}
	if pattern, ok := schemaObj["pattern"].(string); ok {
		if len(val) > v.maxPatternInput {
			return &Violation{
				Path:    path,
				Rule:    "pattern",
				Message: fmt.Sprintf("value exceeds the %d byte pattern input limit", v.maxPatternInput),
			}
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return &Violation{
				Path:    path,
				Rule:    "pattern",
				Message: fmt.Sprintf("invalid pattern %q", pattern),
			}
		}
		if !re.MatchString(val) {
			return &Violation{
				Path:    path,
				Rule:    "pattern",
				Message: fmt.Sprintf("value does not match pattern %q", pattern),
			}
		}
	}
	return nil
}

func checkNumberBounds(path string, value interface{}, schemaObj map[string]interface{}) *Violation {
	num, ok := asFloat(value)
	if !ok {
		return nil
	}
	if min, ok := floatKeyword(schemaObj, "minimum"); ok && num < min {
		return &Violation{
			Path:    path,
			Rule:    "minimum",
			Message: fmt.Sprintf("value %v is below the minimum %v", num, min),
		}
	}
	if max, ok := floatKeyword(schemaObj, "maximum"); ok && num > max {
		return &Violation{
			Path:    path,
			Rule:    "maximum",
			Message: fmt.Sprintf("value %v exceeds the maximum %v", num, max),
		}
	}
	return nil
}

func checkEnum(path string, value interface{}, enum []interface{}) *Violation {
	canonical := canonicalForm(value)
	for _, allowed := range enum {
		if canonicalForm(allowed) == canonical {
			return nil
		}
	}
	return &Violation{
		Path:    path,
		Rule:    "enum",
		Message: "value is not one of the allowed values",
	}
}

// canonicalForm renders a value for structural comparison. json.Number and
// float forms of the same number compare equal.
func canonicalForm(v interface{}) string {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case int64:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// kindOf discriminates the JSON kind of a decoded value. A decoded JSON
// object whose keys are exactly "0".."n-1" is treated as an array, matching
// the wire behavior of clients that serialize lists as indexed objects.
// An empty object stays an object.
func kindOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		if _, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return "integer"
		}
		if f, err := val.Float64(); err == nil && f == float64(int64(f)) {
			return "integer"
		}
		return "number"
	case float64:
		if val == float64(int64(val)) {
			return "integer"
		}
		return "number"
	case int, int64:
		return "integer"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		if len(val) > 0 && hasSequentialKeys(val) {
			return "array"
		}
		return "object"
	}
	return "unknown"
}

// kindMatches applies the numeric widening rule: integer satisfies number,
// but not the reverse.
func kindMatches(typeName string, value interface{}) bool {
	kind := kindOf(value)
	if typeName == "number" {
		return kind == "number" || kind == "integer"
	}
	return kind == typeName
}

// hasSequentialKeys reports whether the object keys are exactly 0..n-1.
func hasSequentialKeys(obj map[string]interface{}) bool {
	for i := 0; i < len(obj); i++ {
		if _, ok := obj[strconv.Itoa(i)]; !ok {
			return false
		}
	}
	return true
}

func asFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
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

func intKeyword(schemaObj map[string]interface{}, name string) (int, bool) {
	f, ok := floatKeyword(schemaObj, name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func floatKeyword(schemaObj map[string]interface{}, name string) (float64, bool) {
	raw, ok := schemaObj[name]
	if !ok {
		return 0, false
	}
	return asFloat(raw)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// sortedKeys fixes the property iteration order; the violation list must
// not depend on map iteration.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
