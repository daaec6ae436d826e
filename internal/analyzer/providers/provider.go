package providers

import "errors"

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Request is a single completion call.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider to constrain the reply to a JSON object where it
	// supports that.
	JSON      bool
	MaxTokens int
}

const defaultMaxTokens = 4096

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}
