package composer

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/kovalyov-valentin/intelligence-brief/internal/source"
)

// Readability extracts the main text of an article page.
type Readability struct {
	client *source.Client
}

// NewReadability extracts article text from pages fetched with client.
func NewReadability(client *source.Client) *Readability {
	return &Readability{client: client}
}

func (r *Readability) Text(ctx context.Context, pageURL string) (string, error) {
	data, err := r.client.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	doc, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return "", err
	}

	return cleanText(doc.TextContent), nil
}

// readability leaves long runs of blank lines behind.
var redundantNewLines = regexp.MustCompile(`\n{3,}`)

func cleanText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n"))
}
