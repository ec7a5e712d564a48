package platform

import (
	"strings"
)

// browserTokens is the closed set of tokens that mark a window title as
// belonging to a browser, per spec.md §4.A best-title-match step 2.
var browserTokens = []string{"chrome", "firefox", "edge", "safari", "opera", "brave"}

var browserSeparators = []string{" - ", " — ", " | ", " • "}

func isBrowserTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, tok := range browserTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// similarity implements spec.md §4.A's similarity function: 1.0 if equal
// after lowercasing; short/long*0.9 if one contains the other; otherwise a
// Jaccard-style word-overlap ratio where two words "match" if equal or one
// contains the other.
func similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1.0
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		short, long := len(la), len(lb)
		if short > long {
			short, long = long, short
		}
		if long == 0 {
			return 0
		}
		return float64(short) / float64(long) * 0.9
	}
	wa := strings.Fields(la)
	wb := strings.Fields(lb)
	common := wordOverlap(wa, wb)
	denom := len(wa) + len(wb) - common
	if denom <= 0 {
		return 0
	}
	return float64(common) / float64(denom)
}

func wordOverlap(a, b []string) int {
	used := make([]bool, len(b))
	count := 0
	for _, wa := range a {
		for j, wb := range b {
			if used[j] {
				continue
			}
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				used[j] = true
				count++
				break
			}
		}
	}
	return count
}

// splitTitle splits a browser title into its " - "/" — "/" | "/" • "
// separated parts (spec.md §4.A step 2).
func splitTitle(title string) []string {
	parts := []string{title}
	for _, sep := range browserSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

// BestTitleMatch implements spec.md §4.A's best-title-match algorithm over
// a set of (handle, window title) candidates. It returns the index of the
// chosen candidate and whether the match passed a similarity threshold
// (false means "returned the first candidate and a warning should be
// logged", per spec.md).
func BestTitleMatch(candidates []WindowCandidate, target string) (index int, passed bool) {
	if len(candidates) == 0 {
		return -1, false
	}
	lowerTarget := strings.ToLower(target)

	// Step 1: substring containment is an exact match.
	for i, c := range candidates {
		if strings.Contains(strings.ToLower(c.Title), lowerTarget) {
			return i, true
		}
	}

	// Step 2: browser titles compare by best part similarity > 0.6.
	if isBrowserTitle(target) {
		bestIdx, bestScore := -1, 0.0
		for i, c := range candidates {
			if !isBrowserTitle(c.Title) {
				continue
			}
			for _, partA := range splitTitle(target) {
				for _, partB := range splitTitle(c.Title) {
					if s := similarity(strings.TrimSpace(partA), strings.TrimSpace(partB)); s > bestScore {
						bestScore, bestIdx = s, i
					}
				}
			}
		}
		if bestIdx >= 0 && bestScore > 0.6 {
			return bestIdx, true
		}
	}

	// Step 3: whole-string similarity > 0.5.
	bestIdx, bestScore := -1, 0.0
	for i, c := range candidates {
		if s := similarity(target, c.Title); s > bestScore {
			bestScore, bestIdx = s, i
		}
	}
	if bestIdx >= 0 && bestScore > 0.5 {
		return bestIdx, true
	}

	// Step 4: give up, return the first candidate with a warning.
	return 0, false
}
