package components

import (
	"context"

	"github.com/leofalp/aigoflow/flow"
)

// Input emits the run input, or its "value" config when one is set.
type Input struct{}

var _ flow.Component = Input{}

// NewInput creates an Input node.
func NewInput() Input {
	return Input{}
}

// Ports implements flow.Component.
func (Input) Ports() flow.Ports {
	return flow.Ports{
		Description: "Emits the input the flow was started with.",
		Inputs: []flow.InputPort{
			{Name: "value", Types: []flow.TypeTag{flow.TagText, flow.TagData}, Description: "Overrides the run input."},
		},
		Outputs: []flow.OutputPort{
			{Name: "text", Types: []flow.TypeTag{flow.TagText, flow.TagData, flow.TagMessage}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (Input) Execute(_ context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	if input.Inputs.Has("value") {
		return flow.NewResult("text", input.Inputs.Value("value")), nil
	}
	return flow.NewResult("text", input.RunInput), nil
}

// Output passes its single input through, marking the end of a flow.
type Output struct{}

var _ flow.Component = Output{}

// NewOutput creates an Output node.
func NewOutput() Output {
	return Output{}
}

// Ports implements flow.Component.
func (Output) Ports() flow.Ports {
	return flow.Ports{
		Description: "Returns the value it receives as the flow result.",
		Inputs: []flow.InputPort{
			{Name: "value", Types: []flow.TypeTag{flow.TagText, flow.TagData, flow.TagMessage, flow.TagEmbedding}, Required: true},
		},
		Outputs: []flow.OutputPort{
			{Name: "value", Types: []flow.TypeTag{flow.TagText, flow.TagData, flow.TagMessage, flow.TagEmbedding}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (Output) Execute(_ context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	return flow.NewResult("value", input.Inputs.Value("value")), nil
}
