/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package jsonutil

import (
	"bytes"
	"encoding/json"
)

// Unmarshal parses the JSON-encoded data and stores the result in the value pointed to by v.
// Numbers are decoded as json.Number so that integer parameters survive the
// round trip without float conversion.
func Unmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}

// MarshalSilently converts the given value to its JSON representation.
func MarshalSilently(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// UnmarshalValue decodes data into a generic JSON value (map, slice, json.Number,
// string, bool or nil).
func UnmarshalValue(data []byte) (interface{}, error) {
	var v interface{}
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
