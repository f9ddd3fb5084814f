package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFunc_CallParsesArguments(testCase *testing.T) {
	adder := NewFunc("add", "adds two numbers", nil, func(ctx context.Context, arguments map[string]any) (any, error) {
		left, _ := arguments["a"].(float64)
		right, _ := arguments["b"].(float64)
		return map[string]float64{"sum": left + right}, nil
	})

	output, err := adder.Call(context.Background(), "```json\n{\"a\": 2, \"b\": 3,}\n```")
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, `"sum":5`) {
		testCase.Errorf("unexpected output %s", output)
	}
}

func TestFunc_CallReturnsStringsVerbatim(testCase *testing.T) {
	greeter := NewFunc("greet", "", nil, func(ctx context.Context, arguments map[string]any) (any, error) {
		return "hello", nil
	})

	output, err := greeter.Call(context.Background(), "")
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}
	if output != "hello" {
		testCase.Errorf("expected raw string output, got %q", output)
	}
	if info := greeter.ToolInfo(); info.Parameters == nil || info.Parameters.Type != "object" {
		testCase.Errorf("expected empty object schema, got %+v", info.Parameters)
	}
}

func TestFunc_CallPropagatesErrors(testCase *testing.T) {
	failure := errors.New("backend down")
	broken := NewFunc("broken", "", nil, func(ctx context.Context, arguments map[string]any) (any, error) {
		return nil, failure
	})

	if _, err := broken.Call(context.Background(), "{}"); !errors.Is(err, failure) {
		testCase.Errorf("expected wrapped failure, got %v", err)
	}
}
