package components

import (
	"context"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aigoflow/flow"
)

// HTMLToMarkdown converts an HTML document to Markdown.
type HTMLToMarkdown struct{}

var _ flow.Component = HTMLToMarkdown{}

// NewHTMLToMarkdown creates an HTMLToMarkdown node.
func NewHTMLToMarkdown() HTMLToMarkdown {
	return HTMLToMarkdown{}
}

// Ports implements flow.Component.
func (HTMLToMarkdown) Ports() flow.Ports {
	return flow.Ports{
		Description: "Converts HTML content to Markdown.",
		Inputs: []flow.InputPort{
			{Name: "html", Types: []flow.TypeTag{flow.TagText}, Required: true, ToolEligible: true, Description: "The HTML to convert."},
		},
		Outputs: []flow.OutputPort{
			{Name: "markdown", Types: []flow.TypeTag{flow.TagText}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (HTMLToMarkdown) Execute(_ context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	markdown, err := htmltomarkdown.ConvertString(input.Inputs.String("html"))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return flow.NewResult("markdown", markdown), nil
}
