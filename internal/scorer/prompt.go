package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
)

// ErrMalformedResponse is returned when the model output is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed scoring response")

const systemPrompt = `You are the editor of a daily technology intelligence brief.
Rate how relevant each numbered item is to the reader's interests on a scale from 0 to 10,
where 10 is essential reading and 0 is irrelevant. Primary topics matter most; secondary
topics are nice to have. Prefer substantive news, releases and research over hype.

Answer with a single JSON object and nothing else, in exactly this shape:
{"items":[{"id":"1","score":7,"topics":["llm"],"rationale":"one short line"}]}
Rate every item. "topics" may only contain topics from the provided lists.`

const promptExcerptLimit = 300

func (s *Scorer) prompt(batch []model.Item) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Primary topics: %s\n", strings.Join(s.opts.PrimaryTopics, ", "))
	if len(s.opts.SecondaryTopics) > 0 {
		fmt.Fprintf(&sb, "Secondary topics: %s\n", strings.Join(s.opts.SecondaryTopics, ", "))
	}
	sb.WriteString("\nItems:\n")

	for i, item := range batch {
		fmt.Fprintf(&sb, "\n[%d] %s\nSource: %s (%s)\n", i+1, item.Title, item.SourceName, item.Source)
		if len(item.Tags) > 0 {
			fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(item.Tags, ", "))
		}
		if item.Excerpt != "" {
			fmt.Fprintf(&sb, "Excerpt: %s\n", shorten(item.Excerpt, promptExcerptLimit))
		}
	}

	return sb.String()
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

type rating struct {
	Score     float64
	Topics    []string
	Rationale string
}

type response struct {
	Items []responseItem `json:"items"`
}

type responseItem struct {
	ID        json.RawMessage `json:"id"`
	Score     *float64        `json:"score"`
	Topics    []string        `json:"topics"`
	Rationale string          `json:"rationale"`
}

// parseResponse decodes a scoring response for a batch of n items. The result
// is keyed by zero-based batch position and holds only entries that passed
// validation; the caller treats every missing position as unscored.
func parseResponse(text string, n int, isTopic func(string) bool) (map[int]rating, error) {
	var resp response
	if err := json.Unmarshal([]byte(trimFence(text)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if resp.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedResponse)
	}

	results := make(map[int]rating, n)

	for _, entry := range resp.Items {
		pos, ok := parseID(entry.ID, n)
		if !ok {
			continue
		}
		if _, dup := results[pos]; dup {
			continue
		}

		if entry.Score == nil || *entry.Score < 0 || *entry.Score > 10 {
			continue
		}

		rationale := strings.TrimSpace(entry.Rationale)
		if rationale == "" {
			continue
		}

		topics := lo.Uniq(lo.FilterMap(entry.Topics, func(topic string, _ int) (string, bool) {
			topic = strings.ToLower(strings.TrimSpace(topic))
			return topic, isTopic(topic)
		}))

		results[pos] = rating{
			Score:     *entry.Score,
			Topics:    topics,
			Rationale: rationale,
		}
	}

	return results, nil
}

// parseID accepts "3" or 3 for the third item and returns position 2.
func parseID(raw json.RawMessage, n int) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}

	id, err := strconv.Atoi(s)
	if err != nil || id < 1 || id > n {
		return 0, false
	}

	return id - 1, true
}

// trimFence removes a single markdown code fence around the payload.
func trimFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}
