package jsonschema

import (
	"strings"
	"testing"
)

func TestNewObject_RequiredOrderIsStable(testCase *testing.T) {
	schema := NewObject("search parameters").
		Property("query", &Schema{Type: TypeString}, true).
		Property("top_k", &Schema{Type: TypeInteger}, false).
		Property("filter", &Schema{Type: TypeString}, true).
		Build()

	if schema.Type != TypeObject {
		testCase.Fatalf("expected object schema, got %q", schema.Type)
	}
	if len(schema.Properties) != 3 {
		testCase.Fatalf("expected 3 properties, got %d", len(schema.Properties))
	}
	if strings.Join(schema.Required, ",") != "query,filter" {
		testCase.Errorf("expected required [query filter], got %v", schema.Required)
	}
}

func TestForValue_InfersPrimitiveTypes(testCase *testing.T) {
	cases := map[string]any{
		TypeString:  "text",
		TypeBoolean: true,
		TypeNumber:  0.5,
		TypeInteger: 4,
		TypeArray:   []string{"a"},
		TypeObject:  map[string]any{"k": "v"},
	}

	for expectedType, value := range cases {
		schema := ForValue(value, "")
		if schema.Type != expectedType {
			testCase.Errorf("ForValue(%v): expected %q, got %q", value, expectedType, schema.Type)
		}
	}
}

func TestForValue_NilUsesFallback(testCase *testing.T) {
	if schema := ForValue(nil, TypeInteger); schema.Type != TypeInteger {
		testCase.Errorf("expected fallback integer, got %q", schema.Type)
	}
	if schema := ForValue(nil, ""); schema.Type != TypeString {
		testCase.Errorf("expected default string fallback, got %q", schema.Type)
	}
}

func TestSchema_JsonString(testCase *testing.T) {
	schema := NewObject("").Property("query", &Schema{Type: TypeString}, true).Build()

	encoded, err := schema.JsonString()
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(encoded, `"required":["query"]`) {
		testCase.Errorf("expected required list in JSON, got %s", encoded)
	}
	if schema.String() != encoded {
		testCase.Errorf("expected String() to match JsonString()")
	}
}
