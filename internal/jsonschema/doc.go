// Package jsonschema describes tool parameters in the JSON-schema-like shape
// expected by LLM function-calling protocols.
//
// Schemas are assembled explicitly from declared node ports with [NewObject]
// rather than reflected from Go types, because a node's tool surface is a
// runtime property of the graph, not of a Go struct. [ForValue] infers the
// primitive type of a port from its declared default value.
package jsonschema
