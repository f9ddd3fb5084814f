// Package jsonx is the single JSON import site of the module. It wraps
// goccy/go-json so callers never import an encoder directly.
package jsonx

import (
	stdjson "encoding/json"

	gojson "github.com/goccy/go-json"
)

// RawMessage stays compatible with encoding/json so it can be embedded in
// types that are also handled by the standard library.
type RawMessage = stdjson.RawMessage

func Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}

// MarshalString marshals v and returns the encoding as a string.
func MarshalString(v any) (string, error) {
	encoded, err := gojson.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
