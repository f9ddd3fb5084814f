// Package tool defines the callable-tool surface handed to agent nodes.
//
// [GenericTool] is the provider-agnostic contract: a description advertised to
// the model plus a JSON-in, JSON-out Call. Flow nodes exposed as tools and
// plain Go functions wrapped with [NewFunc] both satisfy it. A [Catalog]
// collects the tools available to one agent and rejects two tools that would
// be advertised under the same name.
package tool
