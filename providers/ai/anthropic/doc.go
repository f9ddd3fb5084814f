// Package anthropic implements [ai.Provider] and [ai.StreamProvider] for
// Anthropic's Messages API over plain HTTP.
//
// Authentication uses the x-api-key header and every request is pinned to a
// fixed anthropic-version. Like the openai package, the provider never reads
// the process environment; use [FromConfig] to build it from ANTHROPIC_API_KEY,
// ANTHROPIC_BASE_URL and CHAT_MODEL values.
package anthropic
