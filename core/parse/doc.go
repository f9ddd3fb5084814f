// Package parse converts raw text produced by language models into Go values.
// Models frequently emit almost-JSON (single quotes, trailing commas, fenced
// blocks) or wrap values in schema-style {"type": ..., "value": ...} envelopes,
// so every entry point repairs and unwraps before giving up.
//
// [ParseArguments] decodes tool-call arguments into a map; [ParseStringAs]
// converts text into any primitive or JSON-decodable type.
package parse
