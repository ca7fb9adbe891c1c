package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/geobit/geobit/internal/llm"
	"github.com/geobit/geobit/internal/normalize"
	"github.com/geobit/geobit/internal/store"
	"github.com/geobit/geobit/pkg/models"
)

// maxContentChars bounds the text sent for analysis; beyond this the
// request risks blowing the model's token limit.
const maxContentChars = 8000

const processSystemPrompt = `You are a geoscience content analyst. Given an article, respond ONLY with a JSON object: {"summary": "<2-3 sentence summary>", "category": "<one of: geology, climate, oceanography, research, industry, technology>", "interestLevel": <integer 0-100 rating how interesting this is to geoscience newsletter readers>}.`

const (
	fallbackAnalysisSummary  = "No summary available"
	fallbackAnalysisCategory = "unknown"
	fallbackInterestLevel    = 50
)

// ProcessRequest is one article's text to summarize and categorize.
type ProcessRequest struct {
	Content string
	Title   string
	URL     string
}

// Analysis is the processor's output. Category stays a raw string here
// ("unknown" when the model gave none); it is only coerced into the
// enum if the analysis is persisted as an article.
type Analysis struct {
	Summary       string `json:"summary"`
	Category      string `json:"category"`
	InterestLevel int    `json:"interestLevel"`
	Model         string `json:"model"`
}

// Process summarizes and categorizes a single article's text via the
// external API, using the same retry policy as search. Garbled model
// output degrades to defaults instead of failing the call.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (Analysis, error) {
	if strings.TrimSpace(req.Content) == "" {
		return Analysis{}, ErrEmptyContent
	}
	if s.apiKey == "" {
		return Analysis{}, ErrMissingAPIKey
	}

	content := truncate(cleanContent(req.Content), maxContentChars)

	var user strings.Builder
	if req.Title != "" {
		user.WriteString("Title: " + req.Title + "\n")
	}
	if req.URL != "" {
		user.WriteString("URL: " + req.URL + "\n")
	}
	user.WriteString("Article:\n" + content)

	resp, err := s.completer.Complete(ctx, llm.ChatRequest{
		Model: llmAnalysisModel,
		Messages: []llm.Message{
			{Role: "system", Content: processSystemPrompt},
			{Role: "user", Content: user.String()},
		},
		MaxTokens:      600,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return Analysis{}, err
	}

	analysis := parseAnalysis(resp.Content())
	analysis.Model = resp.Model
	return analysis, nil
}

// llmAnalysisModel is the default single-article analysis model; cheaper
// than the web-search models since no tool use is involved.
const llmAnalysisModel = "anthropic/claude-3.5-haiku"

// ProcessAndStore runs Process and, when the request carries a URL,
// persists the analysis as an article so repeated processing of the same
// page merges into one record. Returns the stored article id, or "" when
// nothing was persisted.
func (s *Service) ProcessAndStore(ctx context.Context, req ProcessRequest) (Analysis, string, error) {
	analysis, err := s.Process(ctx, req)
	if err != nil || req.URL == "" {
		return analysis, "", err
	}

	url := normalize.NormalizeURL(req.URL)
	article := models.Article{
		ID:            store.ArticleID(url),
		Title:         req.Title,
		URL:           url,
		Summary:       analysis.Summary,
		Category:      models.ParseCategory(analysis.Category),
		InterestScore: analysis.InterestLevel,
		Model:         analysis.Model,
	}
	if article.Title == "" {
		article.Title = normalize.FallbackTitle
	}
	if err := s.store.UpsertArticles(ctx, []models.Article{article}); err != nil {
		return analysis, "", err
	}
	return analysis, article.ID, nil
}

// parseAnalysis decodes the model's JSON object, filling defaults per
// missing field. A completely unparseable payload yields the all-default
// analysis rather than an error; malformed AI output degrades, it does
// not abort.
func parseAnalysis(content string) Analysis {
	out := Analysis{
		Summary:       fallbackAnalysisSummary,
		Category:      fallbackAnalysisCategory,
		InterestLevel: fallbackInterestLevel,
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		// Models sometimes fence or preface the object; salvage the
		// outermost braces before giving up.
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return out
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
			return out
		}
	}

	if v, ok := raw["summary"].(string); ok && strings.TrimSpace(v) != "" {
		out.Summary = strings.TrimSpace(v)
	}
	if v, ok := raw["category"].(string); ok && strings.TrimSpace(v) != "" {
		out.Category = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := raw["interestLevel"].(float64); ok {
		out.InterestLevel = clampInterest(int(v))
	}
	return out
}

func clampInterest(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// cleanContent strips HTML tags and collapses whitespace. Non-HTML text
// passes through goquery unchanged apart from whitespace normalization.
func cleanContent(s string) string {
	// A space ahead of each tag keeps words in adjacent elements from
	// gluing together once the markup is gone.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.ReplaceAll(s, "<", " <")))
	if err == nil {
		doc.Find("script, style, noscript").Remove()
		s = doc.Text()
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
