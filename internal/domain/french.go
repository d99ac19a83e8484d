package domain

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"
)

//go:embed data/stopwords_fr.txt
var frenchStopWordsTxt []byte

// FrenchStopWords returns the embedded French stop-word set.
func FrenchStopWords() map[string]struct{} {
	words := make(map[string]struct{}, 512)
	scanner := bufio.NewScanner(bytes.NewReader(frenchStopWordsTxt))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[line] = struct{}{}
	}
	return words
}

// ParseLemmaTable reads "form<TAB>lemma" lines. Blank lines and # comments are ignored;
// the first mapping of a form wins.
func ParseLemmaTable(r io.Reader) (map[string]string, error) {
	table := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		form, lemma, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected form<TAB>lemma", lineNo)
		}
		form = strings.ToLower(strings.TrimSpace(form))
		lemma = strings.ToLower(strings.TrimSpace(lemma))
		if form == "" || lemma == "" {
			continue
		}
		if _, exists := table[form]; !exists {
			table[form] = lemma
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
