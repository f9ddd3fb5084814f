// Package openai implements [ai.Provider] and [ai.StreamProvider] for
// OpenAI-compatible chat completion APIs on top of github.com/sashabaranov/go-openai.
//
// The provider never reads the process environment: the API key, base URL
// and model come from the builder methods or from [FromConfig]. Pointing the
// base URL at a self-hosted inference server (vLLM, Ollama, LM Studio) works
// as long as it speaks the /v1/chat/completions protocol.
package openai
