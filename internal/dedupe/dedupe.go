package dedupe

import (
	"github.com/geobit/geobit/internal/similarity"
	"github.com/geobit/geobit/pkg/models"
)

// TitleThreshold is the Jaccard score above which two titles are treated
// as the same story. Tuned for near-duplicate news headlines: high enough
// that distinct stories sharing a few words survive, low enough to catch
// reworded reposts.
const TitleThreshold = 0.8

// Articles removes duplicates from a candidate list, preserving order;
// the first occurrence wins. An article is dropped when its non-empty URL
// exactly matches one already kept, or when its title scores above
// TitleThreshold against any kept title.
func Articles(articles []models.Article) []models.Article {
	seenURLs := make(map[string]bool)
	var kept []models.Article

	for _, a := range articles {
		if a.URL != "" && seenURLs[a.URL] {
			continue
		}
		if similarToKept(a.Title, kept) {
			continue
		}
		if a.URL != "" {
			seenURLs[a.URL] = true
		}
		kept = append(kept, a)
	}
	return kept
}

func similarToKept(title string, kept []models.Article) bool {
	for _, k := range kept {
		if similarity.Jaccard(title, k.Title) > TitleThreshold {
			return true
		}
	}
	return false
}
