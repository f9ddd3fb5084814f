package jsonschema

import (
	"fmt"
	"reflect"

	"github.com/leofalp/aigoflow/internal/jsonx"
)

// Primitive type names used in Schema.Type.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Schema represents the structure of a JSON Schema document used to describe
// tool arguments. Only the subset understood by common function-calling APIs
// is modeled.
type Schema struct {
	// Type specifies the data type (e.g. "object", "array", "string", "number").
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object schema, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items describes the elements of an array schema.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether undeclared properties are allowed.
	AdditionalProperties any   `json:"additionalProperties,omitempty"`
	Default              any   `json:"default,omitempty"`
	Enum                 []any `json:"enum,omitempty"`
}

// ObjectBuilder assembles an object schema property by property while keeping
// the declaration order of required properties stable.
type ObjectBuilder struct {
	schema *Schema
}

// NewObject starts an object schema with the given description.
func NewObject(description string) *ObjectBuilder {
	return &ObjectBuilder{
		schema: &Schema{
			Type:        TypeObject,
			Description: description,
			Properties:  make(map[string]*Schema),
		},
	}
}

// Property adds a named property. Required properties are appended to the
// schema's required list in call order.
func (builder *ObjectBuilder) Property(name string, property *Schema, required bool) *ObjectBuilder {
	builder.schema.Properties[name] = property
	if required {
		builder.schema.Required = append(builder.schema.Required, name)
	}
	return builder
}

// Build returns the assembled schema.
func (builder *ObjectBuilder) Build() *Schema {
	return builder.schema
}

// ForValue infers a primitive schema from a Go value, typically a port's
// declared default. Nil values and unknown kinds fall back to fallbackType,
// or "string" when fallbackType is empty.
func ForValue(value any, fallbackType string) *Schema {
	if fallbackType == "" {
		fallbackType = TypeString
	}
	if value == nil {
		return &Schema{Type: fallbackType}
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.String:
		return &Schema{Type: TypeString, Default: value}
	case reflect.Bool:
		return &Schema{Type: TypeBoolean, Default: value}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: TypeNumber, Default: value}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: TypeInteger, Default: value}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: TypeArray, Items: &Schema{}, Default: value}
	case reflect.Map, reflect.Struct:
		return &Schema{Type: TypeObject, Default: value}
	default:
		return &Schema{Type: fallbackType}
	}
}

// JsonString converts the Schema to its compact JSON representation.
func (s *Schema) JsonString() (string, error) {
	encoded, err := jsonx.MarshalString(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return encoded, nil
}

// String returns the JSON representation of the schema, or an error message
// if marshaling fails.
func (s *Schema) String() string {
	encoded, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return encoded
}
