package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Well-known keys read by the built-in provider candidates.
const (
	KeyOpenAIAPIKey     = "OPENAI_API_KEY"
	KeyOpenAIBaseURL    = "OPENAI_BASE_URL"
	KeyInferenceEnabled = "INFERENCE_API_ENABLED"
	KeyInferenceURL     = "INFERENCE_API_URL"
	KeyInferenceAPIKey  = "INFERENCE_API_KEY"
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyAnthropicBaseURL = "ANTHROPIC_BASE_URL"
	KeyChatModel        = "CHAT_MODEL"
	KeyEmbeddingModel   = "EMBEDDING_MODEL"
	KeyLogLevel         = "AIGOFLOW_LOG_LEVEL"
	KeyLogFormat        = "AIGOFLOW_LOG_FORMAT"
)

// Values is an immutable-by-convention mapping of configuration keys to raw
// string values. A nil Values is valid and empty.
type Values map[string]string

// Load reads one or more dotenv files into a new Values without touching the
// process environment. Later files override earlier ones.
func Load(files ...string) (Values, error) {
	values := Values{}
	for _, file := range files {
		fileValues, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", file, err)
		}
		values = values.Merge(fileValues)
	}
	return values, nil
}

// Parse reads dotenv-formatted content from reader.
func Parse(reader io.Reader) (Values, error) {
	parsed, err := godotenv.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return Values(parsed), nil
}

// Lookup returns the trimmed value for key and whether it is present and non-empty.
func (values Values) Lookup(key string) (string, bool) {
	value, exists := values[key]
	value = strings.TrimSpace(value)
	return value, exists && value != ""
}

// Get returns the value for key, or fallback when the key is absent or empty.
func (values Values) Get(key, fallback string) string {
	if value, ok := values.Lookup(key); ok {
		return value
	}
	return fallback
}

// Bool reports whether key holds a truthy value ("1", "true", "yes", "on").
func (values Values) Bool(key string) bool {
	value, ok := values.Lookup(key)
	if !ok {
		return false
	}
	switch strings.ToLower(value) {
	case "yes", "on":
		return true
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

// Int returns the integer value for key, or fallback when absent or malformed.
func (values Values) Int(key string, fallback int) int {
	value, ok := values.Lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Merge returns a new Values containing values overridden by every entry of other.
func (values Values) Merge(other map[string]string) Values {
	merged := make(Values, len(values)+len(other))
	for key, value := range values {
		merged[key] = value
	}
	for key, value := range other {
		merged[key] = value
	}
	return merged
}
