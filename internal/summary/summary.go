package summary

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// Request is a single text-in/text-out call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	// Ask the provider for a JSON object response.
	JSON bool
}

// Completer is implemented by every LLM provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleteSentences drops a trailing sentence fragment, which is what a
// response cut by the token limit usually ends with.
func CompleteSentences(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}

	i := strings.LastIndexAny(text, ".!?")
	if i < 0 {
		return text
	}

	return text[:i+1]
}
