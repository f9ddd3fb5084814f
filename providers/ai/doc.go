// Package ai defines the provider-agnostic chat types used by agent nodes:
// requests, responses, tool descriptions and tool results.
//
// [Provider] is the synchronous chat completion interface. Providers that can
// stream implement [StreamProvider] as well, and callers detect it with a type
// assertion. Tool executions report their outcome through [ToolResult], so a
// domain failure travels back to the model as a payload instead of aborting
// the calling node.
package ai
