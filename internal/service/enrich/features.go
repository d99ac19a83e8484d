package enrich

import (
	"strings"
	"unicode/utf8"

	"github.com/kapu/ghostwriter-go/internal/domain"
)

// AddLengthFeatures sets nb_characters (runes) and nb_words (whitespace tokens).
// Songs without lyrics count zero for both.
func AddLengthFeatures(rows []domain.SongRow) []domain.SongRow {
	for i := range rows {
		rows[i].NbCharacters = int64(utf8.RuneCountInString(rows[i].Lyrics))
		rows[i].NbWords = int64(len(strings.Fields(rows[i].Lyrics)))
	}
	return rows
}

// FilterByLength keeps rows with low <= nb_words <= high, preserving order.
func FilterByLength(rows []domain.SongRow, low, high int) []domain.SongRow {
	kept := make([]domain.SongRow, 0, len(rows))
	for _, row := range rows {
		if row.NbWords >= int64(low) && row.NbWords <= int64(high) {
			kept = append(kept, row)
		}
	}
	return kept
}

// AddTopWords stores the k most frequent clean_str tokens and the first of them.
func AddTopWords(rows []domain.SongRow, k int) []domain.SongRow {
	for i := range rows {
		top := TopWords(strings.Fields(rows[i].CleanStr), k)
		rows[i].TopWords = top
		rows[i].MostFrequentWord = ""
		if len(top) > 0 {
			rows[i].MostFrequentWord = top[0]
		}
	}
	return rows
}

// TopWords returns up to k tokens by descending count. Equal counts keep the
// order in which tokens were first seen.
func TopWords(tokens []string, k int) []string {
	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	top := make([]string, 0, k)
	taken := make(map[string]bool, k)
	for len(top) < k && len(top) < len(order) {
		best := ""
		bestCount := 0
		for _, tok := range order {
			if taken[tok] {
				continue
			}
			if counts[tok] > bestCount {
				best, bestCount = tok, counts[tok]
			}
		}
		taken[best] = true
		top = append(top, best)
	}
	return top
}
