// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"encoding/base64"
)

// Helpers for picking typed fields out of decoded JSON mappings.
// Optional accessors return zero values for absent or mistyped
// fields; required accessors report a malformed response.

func requireString(m map[string]interface{}, key string) (string, error) {
	if s, ok := m[key].(string); ok {
		return s, nil
	}
	return "", malformedResponsef("malformed result %v", m)
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]interface{}, key string) int {
	// JSON numbers decode as float64.
	f, _ := m[key].(float64)
	return int(f)
}

func mapField(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

func listField(m map[string]interface{}, key string) []interface{} {
	v, _ := m[key].([]interface{})
	return v
}

func stringListField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapField(m map[string]interface{}, key string) map[string]string {
	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func base64Field(m map[string]interface{}, key string) ([]byte, error) {
	s, _ := m[key].(string)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, malformedResponsef("field %q is not valid base64: %v", key, err)
	}
	return data, nil
}
