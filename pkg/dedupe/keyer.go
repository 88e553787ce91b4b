/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package dedupe fingerprints task submissions. Two submissions with the
// same type name and structurally identical parameters always hash to the
// same 64-character key, independent of key order or formatting.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key computes the dedupe fingerprint of a (type, params) pair:
// SHA-256 over the canonical JSON of {"params": params, "type": name}.
func Key(typeName string, params interface{}) (string, error) {
	canonical, err := CanonicalJSON(map[string]interface{}{
		"type":   typeName,
		"params": params,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON renders a JSON value deterministically: object keys sorted
// lexicographically at every depth, no insignificant whitespace, numbers in
// minimal form, strings escaped per the JSON spec.
func CanonicalJSON(v interface{}) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		return writeString(b, val)
	case json.Number:
		return writeNumber(b, string(val))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		writeFloat(b, val)
	case map[string]interface{}:
		return writeObject(b, val)
	case []interface{}:
		return writeArray(b, val)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func writeObject(b *strings.Builder, obj map[string]interface{}) error {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeString(b, key); err != nil {
			return err
		}
		b.WriteByte(':')
		if err := writeCanonical(b, obj[key]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func writeArray(b *strings.Builder, arr []interface{}) error {
	b.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeCanonical(b, item); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func writeString(b *strings.Builder, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b.Write(data)
	return nil
}

// writeNumber normalizes a JSON number literal: whole values render without
// a decimal part, fractional values with full precision.
func writeNumber(b *strings.Builder, literal string) error {
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		b.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return fmt.Errorf("invalid number literal %q", literal)
	}
	writeFloat(b, f)
	return nil
}

func writeFloat(b *strings.Builder, f float64) {
	if f == float64(int64(f)) {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
