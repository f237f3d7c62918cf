package tools

import (
	"fmt"
	"strings"
)

// ResolveCourseTitle maps a possibly partial or misspelled course name to
// an indexed title. Matching runs in three passes, cheapest first:
//
//  1. case-insensitive exact match
//  2. case-insensitive substring match (either direction)
//  3. token containment: the share of query tokens present in the title
//     must reach the threshold
//
// The first title that clears a pass wins within that pass; across pass 3
// the highest ratio wins. Fails with ErrCourseNotFound when nothing
// qualifies.
func ResolveCourseTitle(query string, titles []string, threshold float64) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return "", fmt.Errorf("%w: empty course name", ErrCourseNotFound)
	}

	for _, title := range titles {
		if strings.ToLower(title) == needle {
			return title, nil
		}
	}

	for _, title := range titles {
		haystack := strings.ToLower(title)
		if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
			return title, nil
		}
	}

	queryTokens := strings.Fields(needle)
	if len(queryTokens) == 0 {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, query)
	}

	best := ""
	bestRatio := 0.0
	for _, title := range titles {
		titleTokens := tokenSet(title)
		hits := 0
		for _, tok := range queryTokens {
			if titleTokens[tok] {
				hits++
			}
		}
		ratio := float64(hits) / float64(len(queryTokens))
		if ratio > bestRatio {
			best = title
			bestRatio = ratio
		}
	}
	if best == "" || bestRatio < threshold {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, query)
	}
	return best, nil
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}
