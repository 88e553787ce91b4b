/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import (
	"time"
)

const (
	TimeRFC3339Short = "2006-01-02T15:04:05"
	TimeRFC3339Milli = "2006-01-02T15:04:05.999Z"
)

// FormatRFC3339 formats a time in the short RFC3339 layout, returning the
// empty string for zero times.
func FormatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeRFC3339Short)
}

// ParseRFC3339Milli parses a millisecond-precision RFC3339 timestamp.
func ParseRFC3339Milli(str string) (time.Time, error) {
	return time.Parse(TimeRFC3339Milli, str)
}

// UnixSeconds returns the current unix timestamp in seconds.
func UnixSeconds() int64 {
	return time.Now().UTC().Unix()
}
