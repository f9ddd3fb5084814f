package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/leofalp/aigoflow/core/parse"
	"github.com/leofalp/aigoflow/internal/jsonschema"
	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/observability"
)

// GenericTool is the provider-agnostic interface for all tools.
type GenericTool interface {
	// ToolInfo returns the name, description and parameter schema used to
	// advertise this tool to a model.
	ToolInfo() ai.ToolDescription

	// Call invokes the tool with a JSON-encoded argument object and returns a
	// JSON-encoded result. Returns an error only for failures the caller
	// cannot recover from; domain failures are encoded in the result.
	Call(ctx context.Context, inputJson string) (string, error)
}

// Func is a tool backed by a plain Go function taking decoded arguments.
type Func struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, arguments map[string]any) (any, error)
}

var _ GenericTool = (*Func)(nil)

// NewFunc constructs a function tool. parameters may be nil for a tool
// without arguments.
//
// Example:
//
//	clock := tool.NewFunc("current_time", "Returns the current UTC time.", nil,
//	    func(ctx context.Context, _ map[string]any) (any, error) {
//	        return time.Now().UTC().Format(time.RFC3339), nil
//	    })
func NewFunc(name, description string, parameters *jsonschema.Schema, function func(ctx context.Context, arguments map[string]any) (any, error)) *Func {
	if parameters == nil {
		parameters = jsonschema.NewObject("").Build()
	}
	return &Func{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		Function:    function,
	}
}

// ToolInfo implements GenericTool.
func (function *Func) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        function.Name,
		Description: function.Description,
		Parameters:  function.Parameters,
	}
}

// Call parses inputJson leniently, runs the function and serializes the result.
func (function *Func) Call(ctx context.Context, inputJson string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("tool.execution.start",
			observability.String(observability.AttrToolName, function.Name),
			observability.String(observability.AttrToolInput, observability.TruncateString(inputJson, 0)),
		)
		defer span.AddEvent("tool.execution.end")
	}

	arguments, err := parse.ParseArguments(inputJson)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", function.Name, err)
	}

	start := time.Now()
	output, err := function.Function(ctx, arguments)
	if span != nil {
		span.SetAttributes(observability.Duration(observability.AttrDuration, time.Since(start)))
	}
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", err
	}

	if text, ok := output.(string); ok {
		return text, nil
	}
	encoded, err := jsonx.MarshalString(output)
	if err != nil {
		return "", fmt.Errorf("tool %s: encoding output: %w", function.Name, err)
	}
	return encoded, nil
}
