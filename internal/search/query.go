package search

import (
	"strings"
	"time"
)

// FocusSuffix anchors every search to the newsletter's domain so the
// web-search model stays on topic regardless of how broad the keywords are.
const FocusSuffix = "geoscience OR geology OR \"earth science\" news"

// DateRange optionally bounds a search. Zero values mean unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// BuildQuery assembles the search text sent to the AI search API:
// keywords, optional after:/before: date tokens, optional site:
// constraints and the fixed domain-focus suffix.
func BuildQuery(keywords string, dr DateRange, sites []string) string {
	parts := []string{strings.TrimSpace(keywords)}
	if !dr.Start.IsZero() {
		parts = append(parts, "after:"+dr.Start.Format("2006-01-02"))
	}
	if !dr.End.IsZero() {
		parts = append(parts, "before:"+dr.End.Format("2006-01-02"))
	}
	for _, s := range sites {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, "site:"+s)
		}
	}
	parts = append(parts, FocusSuffix)
	return strings.Join(parts, " ")
}
