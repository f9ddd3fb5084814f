package parse

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/aigoflow/internal/jsonx"
)

// ParseArguments decodes a tool-call argument payload into a map. An empty
// payload (or "null") yields an empty map. Malformed JSON is repaired with
// jsonrepair, and schema-wrapped values are unwrapped.
func ParseArguments(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(stripCodeFence(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}

	var arguments map[string]any
	if err := decodeLenient(trimmed, &arguments); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	unwrapped, _ := recursiveUnwrap(arguments).(map[string]any)
	return unwrapped, nil
}

// ParseStringAs converts content into T. Primitive kinds are converted with
// strconv (after unwrapping schema envelopes); every other kind is decoded as
// JSON, repairing the input when the first attempt fails.
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()
	content = strings.TrimSpace(content)

	switch target.Kind() {
	case reflect.String:
		if unwrapped, err := tryUnwrapPrimitive(content); err == nil {
			content = unwrapped
		}
		target.SetString(content)
		return result, nil

	case reflect.Bool, reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if err := setPrimitive(target, content); err != nil {
			unwrapped, unwrapErr := tryUnwrapPrimitive(content)
			if unwrapErr != nil {
				return result, err
			}
			if err := setPrimitive(target, unwrapped); err != nil {
				return result, err
			}
		}
		return result, nil

	default:
		if err := decodeLenient(stripCodeFence(content), &result); err != nil {
			return result, fmt.Errorf("failed to parse content as %T: %w", result, err)
		}
		return result, nil
	}
}

// decodeLenient unmarshals content into target, retrying once on repaired
// JSON and once more on schema-unwrapped JSON.
func decodeLenient(content string, target any) error {
	originalErr := jsonx.Unmarshal([]byte(content), target)
	if originalErr == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return fmt.Errorf("unmarshal error: %w, repair error: %v", originalErr, repairErr)
	}
	if err := jsonx.Unmarshal([]byte(repaired), target); err == nil {
		return nil
	}

	unwrapped, unwrapErr := unwrapSchemaValues(repaired)
	if unwrapErr != nil {
		return fmt.Errorf("unmarshal error: %w", originalErr)
	}
	if err := jsonx.Unmarshal([]byte(unwrapped), target); err != nil {
		return fmt.Errorf("unmarshal repaired content: %w", err)
	}
	return nil
}

func setPrimitive(target reflect.Value, content string) error {
	switch target.Kind() {
	case reflect.Bool:
		parsed, err := strconv.ParseBool(content)
		if err != nil {
			return fmt.Errorf("failed to parse content as bool: %w", err)
		}
		target.SetBool(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as float: %w", err)
		}
		target.SetFloat(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(content, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as int: %w", err)
		}
		target.SetInt(parsed)
	default:
		parsed, err := strconv.ParseUint(content, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as uint: %w", err)
		}
		target.SetUint(parsed)
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}

// tryUnwrapPrimitive extracts the string form of a {"type": ..., "value": ...}
// envelope.
func tryUnwrapPrimitive(content string) (string, error) {
	var data map[string]any
	if err := jsonx.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}

	value, wrapped := schemaEnvelopeValue(data)
	if !wrapped {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	switch typed := value.(type) {
	case string:
		return typed, nil
	case float64, bool:
		return fmt.Sprintf("%v", typed), nil
	default:
		return jsonx.MarshalString(typed)
	}
}

// unwrapSchemaValues rewrites every schema envelope in a JSON document into
// its bare value, e.g. {"q": {"type": "string", "value": "x"}} -> {"q": "x"}.
func unwrapSchemaValues(content string) (string, error) {
	var data any
	if err := jsonx.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	return jsonx.MarshalString(recursiveUnwrap(data))
}

func recursiveUnwrap(data any) any {
	switch typed := data.(type) {
	case map[string]any:
		if value, wrapped := schemaEnvelopeValue(typed); wrapped {
			return recursiveUnwrap(value)
		}
		result := make(map[string]any, len(typed))
		for key, value := range typed {
			result[key] = recursiveUnwrap(value)
		}
		return result
	case []any:
		result := make([]any, len(typed))
		for index, value := range typed {
			result[index] = recursiveUnwrap(value)
		}
		return result
	default:
		return data
	}
}

func schemaEnvelopeValue(data map[string]any) (any, bool) {
	if len(data) != 2 {
		return nil, false
	}
	if _, hasType := data["type"]; !hasType {
		return nil, false
	}
	value, hasValue := data["value"]
	return value, hasValue
}
