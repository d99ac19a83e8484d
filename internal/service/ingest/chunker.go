package ingest

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text on the first separator that occurs, recursing into
// pieces that are still longer than Size, then merges neighbouring pieces
// back up to Size runes with Overlap runes carried between chunks.
type Chunker struct {
	Size       int
	Overlap    int
	Separators []string
}

func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		Size:       size,
		Overlap:    overlap,
		Separators: defaultSeparators,
	}
}

func (c *Chunker) Split(text string) []string {
	return c.split(text, c.Separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.Split(text, separator)
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if runeLen(piece) < c.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, separator)...)
	}
	return out
}

func (c *Chunker) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var (
		docs    []string
		current []string
		total   int
	)
	joinedLen := func(n int) int {
		if len(current) > 0 {
			return total + n + sepLen
		}
		return total + n
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if joinedLen(n) > c.Size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.Overlap || (joinedLen(n) > c.Size && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func splitRunes(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
