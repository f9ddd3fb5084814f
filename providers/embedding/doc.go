// Package embedding turns text into vectors.
//
// [OpenAIEmbedder] calls an OpenAI-compatible /v1/embeddings endpoint through
// github.com/sashabaranov/go-openai. [Hashing] is a deterministic, offline
// feature-hashing embedder: its vectors only capture shared words, which is
// enough for demos and tests that must not reach the network.
package embedding
