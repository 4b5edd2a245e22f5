// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import "time"

// Metadata stores arbitrary key-value pairs for identity claims and audit
// context.
//
// Using a defined type rather than map[string]any gives clearer intent in
// signatures and a place for type-safe accessors.
//
// # Common Keys
//
//   - "request_id": request correlation ID
//   - "session_id": identity provider session
//   - "department": organizational unit
//   - "site_id": issuing facility
//   - "duration_ms": operation duration
//   - "risk_level": stratified level of a computed assessment
//
// Metadata travels into audit events and log attributes, so the usual
// rule holds: opaque references and shapes, never patient identifiers or
// clinical values.
//
// # Thread Safety
//
// Metadata is NOT thread-safe. Do not share a single instance across
// goroutines without external synchronization.
//
// Example:
//
//	meta := extensions.NewMetadata().
//	    Set("request_id", requestID).
//	    Set("risk_level", "high").
//	    Set("duration_ms", 12)
//
//	if level, ok := meta.GetString("risk_level"); ok {
//	    log.Info("assessment recorded", "risk_level", level)
//	}
type Metadata map[string]any

// NewMetadata creates an empty, initialized Metadata map.
func NewMetadata() Metadata {
	return make(Metadata)
}

// Set adds or updates a key-value pair and returns the same Metadata
// instance for chaining.
func (m Metadata) Set(key string, value any) Metadata {
	m[key] = value
	return m
}

// Get retrieves a value by key. The boolean reports whether the key exists.
func (m Metadata) Get(key string) (any, bool) {
	value, ok := m[key]
	return value, ok
}

// GetString retrieves a string value by key. Returns "" and false if the
// key is absent or the value is not a string.
func (m Metadata) GetString(key string) (string, bool) {
	value, ok := m[key]
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// GetInt retrieves an int value by key. Returns 0 and false if the key is
// absent or the value is not an int.
func (m Metadata) GetInt(key string) (int, bool) {
	value, ok := m[key]
	if !ok {
		return 0, false
	}
	i, ok := value.(int)
	return i, ok
}

// GetFloat64 retrieves a float64 value by key. Returns 0 and false if the
// key is absent or the value is not a float64.
func (m Metadata) GetFloat64(key string) (float64, bool) {
	value, ok := m[key]
	if !ok {
		return 0, false
	}
	f, ok := value.(float64)
	return f, ok
}

// GetBool retrieves a bool value by key. The second boolean reports
// whether the key exists and holds a bool.
func (m Metadata) GetBool(key string) (bool, bool) {
	value, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// GetTime retrieves a time.Time value by key. Returns the zero time and
// false if the key is absent or the value is not a time.Time.
func (m Metadata) GetTime(key string) (time.Time, bool) {
	value, ok := m[key]
	if !ok {
		return time.Time{}, false
	}
	t, ok := value.(time.Time)
	return t, ok
}

// Has reports whether a key exists, regardless of its value.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Delete removes a key and returns the same instance for chaining.
// Safe to call even if the key does not exist.
func (m Metadata) Delete(key string) Metadata {
	delete(m, key)
	return m
}

// Clone creates a shallow copy. Values themselves are not deep-copied, so
// pointer values still reference the same underlying data.
func (m Metadata) Clone() Metadata {
	clone := make(Metadata, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Merge copies all entries from other into m, overwriting existing keys.
// A nil other is a no-op. Returns the same instance for chaining.
func (m Metadata) Merge(other Metadata) Metadata {
	if other == nil {
		return m
	}
	for k, v := range other {
		m[k] = v
	}
	return m
}

// Keys returns all keys. Order is not guaranteed.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of key-value pairs.
func (m Metadata) Len() int {
	return len(m)
}
