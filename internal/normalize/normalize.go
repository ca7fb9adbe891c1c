// Package normalize is the trust boundary between raw LLM/search output
// and the rest of the service. Whatever shape the external API returns,
// only well-formed models.Article values come out of here.
package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/geobit/geobit/pkg/models"
)

const (
	FallbackTitle   = "Untitled Article"
	FallbackSource  = "Unknown Source"
	FallbackSummary = "No summary available"
)

// Article converts one untrusted record into a canonical Article. It
// never fails: missing, empty or wrong-typed fields get fallback values,
// unparseable URLs become empty strings and future publish dates are
// clamped to now.
func Article(raw map[string]any, now time.Time) models.Article {
	return models.Article{
		Title:       stringField(raw, FallbackTitle, "title"),
		URL:         NormalizeURL(stringField(raw, "", "url", "link")),
		PublishedAt: dateField(raw, now),
		Source:      stringField(raw, FallbackSource, "source", "publisher"),
		Summary:     stringField(raw, FallbackSummary, "summary", "description"),
		Category:    models.ParseCategory(stringField(raw, "", "category")),
	}
}

// Articles normalizes a batch of raw records against a single "now".
func Articles(raw []map[string]any, now time.Time) []models.Article {
	out := make([]models.Article, 0, len(raw))
	for _, r := range raw {
		out = append(out, Article(r, now))
	}
	return out
}

// NormalizeURL prepends https:// when the scheme is missing and validates
// the result. Anything that still fails to parse as an absolute URL maps
// to "", which drops it from URL-based dedup identity.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !u.IsAbs() {
		return ""
	}
	return u.String()
}

// stringField returns the first non-empty string value among the given
// keys. Non-string scalars are stringified rather than rejected; LLMs
// occasionally return numbers where text was asked for.
func stringField(raw map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64, int, int64, bool:
			return fmt.Sprintf("%v", t)
		}
	}
	return fallback
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

func dateField(raw map[string]any, now time.Time) time.Time {
	s := stringField(raw, "", "publishedDate", "published_at", "date")
	if s == "" {
		return now
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.After(now) {
			// LLMs hallucinate future dates; clamp.
			return now
		}
		return t
	}
	return now
}
