// Package components provides ready-made nodes for flow graphs.
//
// Every component implements flow.Component, so it declares its own ports
// and can be added with GraphBuilder.AddComponent. Components that need a
// chat model or an embedder accept one explicitly or resolve it from the
// run's provider configuration through an ordered fallback:
//
//  1. the client wired into the node (explicit)
//  2. a self-hosted OpenAI-compatible endpoint when INFERENCE_API_ENABLED is set
//  3. the public OpenAI API when OPENAI_API_KEY is set
//  4. the Anthropic Messages API when ANTHROPIC_API_KEY is set (chat only)
//
// Example:
//
//	graph, err := flow.NewGraphBuilder().
//	    AddComponent("question", components.NewInput()).
//	    AddComponent("search", components.NewSearch(documentStore)).
//	    AddComponent("agent", components.NewAgent()).
//	    AddComponent("answer", components.NewOutput()).
//	    AddEdge("question", "text", "agent", "input").
//	    AddEdge("search", flow.ToolPort, "agent", "tools").
//	    AddEdge("agent", "response", "answer", "value").
//	    Build()
package components
