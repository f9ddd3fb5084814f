package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aigoflow/flow"
)

// Prompt renders a template, replacing each {variable} with the value of the
// input port of the same name. The "template" config overrides the template
// given at construction.
type Prompt struct {
	template  string
	variables []string
}

var _ flow.Component = (*Prompt)(nil)

// NewPrompt creates a Prompt node with one required, tool-eligible input per
// variable.
//
// Example:
//
//	prompt := components.NewPrompt("Summarize {topic} for {audience}.", "topic", "audience")
func NewPrompt(template string, variables ...string) *Prompt {
	return &Prompt{
		template:  template,
		variables: variables,
	}
}

// Ports implements flow.Component.
func (prompt *Prompt) Ports() flow.Ports {
	inputs := make([]flow.InputPort, 0, len(prompt.variables))
	for _, variable := range prompt.variables {
		inputs = append(inputs, flow.InputPort{
			Name:         variable,
			Types:        []flow.TypeTag{flow.TagText, flow.TagData, flow.TagMessage},
			Required:     true,
			ToolEligible: true,
			Description:  fmt.Sprintf("Value substituted for {%s}.", variable),
		})
	}

	return flow.Ports{
		Description: "Fills a prompt template with its inputs.",
		Inputs:      inputs,
		Outputs: []flow.OutputPort{
			{Name: "prompt", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (prompt *Prompt) Execute(_ context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	template := input.ConfigString("template", prompt.template)
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("prompt template is empty")
	}

	replacements := make([]string, 0, 2*len(prompt.variables))
	for _, variable := range prompt.variables {
		replacements = append(replacements, "{"+variable+"}", input.Inputs.String(variable))
	}
	return flow.NewResult("prompt", strings.NewReplacer(replacements...).Replace(template)), nil
}
