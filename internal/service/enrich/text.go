package enrich

import (
	"fmt"
	"os"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/fr"
	"github.com/kapu/ghostwriter-go/internal/domain"
)

// elided maps clitic prefixes written with an apostrophe to their full form.
var elided = map[string]string{
	"l":      "le",
	"d":      "de",
	"j":      "je",
	"m":      "me",
	"t":      "te",
	"s":      "se",
	"n":      "ne",
	"c":      "ce",
	"qu":     "que",
	"jusqu":  "jusque",
	"lorsqu": "lorsque",
	"puisqu": "puisque",
	"quoiqu": "quoique",
}

// Dictionary resolves an inflected form to its lemma, returning the form
// itself when unknown. *golem.Lemmatizer implements it.
type Dictionary interface {
	Lemma(word string) string
}

// Lemmatizer maps inflected French forms to their lemma. Override entries are
// consulted before the dictionary; forms known to neither pass through.
type Lemmatizer struct {
	overrides map[string]string
	dict      Dictionary
}

// NewLemmatizer loads the French inflection dictionary and, when extraPath is
// set, a "form<TAB>lemma" file whose entries take precedence.
func NewLemmatizer(extraPath string) (*Lemmatizer, error) {
	dict, err := golem.New(fr.New())
	if err != nil {
		return nil, fmt.Errorf("load french lemma dictionary: %w", err)
	}
	if extraPath == "" {
		return &Lemmatizer{dict: dict}, nil
	}

	f, err := os.Open(extraPath)
	if err != nil {
		return nil, fmt.Errorf("open lemma table: %w", err)
	}
	defer f.Close()

	extra, err := domain.ParseLemmaTable(f)
	if err != nil {
		return nil, fmt.Errorf("parse lemma table %s: %w", extraPath, err)
	}
	return &Lemmatizer{overrides: extra, dict: dict}, nil
}

// NewLemmatizerFromTable builds a lemmatizer over an in-memory table only.
func NewLemmatizerFromTable(table map[string]string) *Lemmatizer {
	return &Lemmatizer{overrides: table}
}

// WithDictionary replaces the dictionary consulted after the overrides.
func (l *Lemmatizer) WithDictionary(dict Dictionary) *Lemmatizer {
	l.dict = dict
	return l
}

// Lemmas lemmatizes one whitespace token. Elided forms such as "l'amour"
// produce two lemmas.
func (l *Lemmatizer) Lemmas(token string) []string {
	token = strings.ReplaceAll(token, "’", "'")
	if prefix, rest, ok := strings.Cut(token, "'"); ok && rest != "" {
		if full, known := elided[prefix]; known {
			return []string{l.lookup(full), l.lookup(rest)}
		}
	}
	return []string{l.lookup(token)}
}

func (l *Lemmatizer) lookup(form string) string {
	if lemma, ok := l.overrides[form]; ok {
		return lemma
	}
	if l.dict != nil {
		if lemma := l.dict.Lemma(form); lemma != "" {
			return lemma
		}
	}
	return form
}

// CleanAndLemmatize fills clean_str (lower-cased tokens minus stop words) and
// lemma_str (lemmas of the clean tokens).
func CleanAndLemmatize(rows []domain.SongRow, stopWords map[string]struct{}, lemmatizer *Lemmatizer) []domain.SongRow {
	for i := range rows {
		clean := CleanTokens(rows[i].Lyrics, stopWords)
		rows[i].CleanStr = strings.Join(clean, " ")

		lemmas := make([]string, 0, len(clean))
		for _, tok := range clean {
			lemmas = append(lemmas, lemmatizer.Lemmas(tok)...)
		}
		rows[i].LemmaStr = strings.Join(lemmas, " ")
	}
	return rows
}

// CleanTokens lower-cases and splits text on whitespace, dropping stop words.
func CleanTokens(text string, stopWords map[string]struct{}) []string {
	fields := strings.Fields(strings.ToLower(text))
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
