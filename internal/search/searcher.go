package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geobit/geobit/internal/llm"
)

const searchSystemPrompt = `You are a research assistant that finds recent geoscience news articles using web search. Respond ONLY with a JSON array of articles. Each article is an object with fields: title, url, publishedDate (ISO-8601), source, summary, category (one of: geology, climate, oceanography, research, industry, technology). Do not include any text outside the JSON array.`

// Completer is the slice of the LLM client the searcher needs.
type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Searcher runs web-grounded article searches through the chat API.
type Searcher struct {
	client    Completer
	model     string
	fallbacks []string
	log       *slog.Logger
}

func NewSearcher(client Completer, model string, fallbacks []string) *Searcher {
	return &Searcher{
		client:    client,
		model:     model,
		fallbacks: fallbacks,
		log:       slog.Default(),
	}
}

// Search asks the model for articles matching query and returns the raw,
// unvalidated records plus the model identifier that actually served the
// request. Records here are untrusted; callers must normalize them.
func (s *Searcher) Search(ctx context.Context, query string) ([]map[string]any, string, error) {
	resp, err := s.client.Complete(ctx, llm.ChatRequest{
		Model:  s.model,
		Models: s.fallbacks,
		Messages: []llm.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Find up to 20 recent news articles for: %s", query)},
		},
		MaxTokens: 4000,
		Tools:     []llm.Tool{{Type: "web_search"}},
	})
	if err != nil {
		return nil, "", err
	}

	records := extractRecords(resp.Content())
	s.log.Info("search completed", "query", query, "records", len(records), "model", resp.Model)
	return records, resp.Model, nil
}

// extractRecords pulls article-shaped objects out of the model's reply.
// Models wrap JSON in prose or fences often enough that we try, in order:
// the content as a bare array, as an object with a results-style key, and
// finally the substring between the outermost brackets. Unsalvageable
// content yields an empty slice, not an error.
func extractRecords(content string) []map[string]any {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if recs := parseArray([]byte(content)); recs != nil {
		return recs
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapper); err == nil {
		for _, key := range []string{"articles", "results", "items"} {
			if raw, ok := wrapper[key]; ok {
				if recs := parseArray(raw); recs != nil {
					return recs
				}
			}
		}
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if recs := parseArray([]byte(content[start : end+1])); recs != nil {
			return recs
		}
	}
	return nil
}

func parseArray(data []byte) []map[string]any {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	records := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records
}
