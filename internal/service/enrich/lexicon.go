package enrich

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/domain"
)

const lexiconWordColumn = "word"

// Lexicon maps a word to its emotion flags, indexed like Emotions.
type Lexicon struct {
	Emotions []string
	words    map[string][]bool
}

func (l *Lexicon) Len() int {
	return len(l.words)
}

// Flags returns the flags of word, or nil when the word is unknown.
func (l *Lexicon) Flags(word string) []bool {
	return l.words[word]
}

// LoadLexicon reads a ';'-delimited file with a "word" column and one column per
// emotion. When a word appears more than once, its first row is kept.
func LoadLexicon(path string, emotions []string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	return ParseLexicon(f, emotions)
}

func ParseLexicon(r io.Reader, emotions []string) (*Lexicon, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read lexicon header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	wordCol, ok := columns[lexiconWordColumn]
	if !ok {
		return nil, fmt.Errorf("lexicon has no %q column", lexiconWordColumn)
	}
	emotionCols := make([]int, len(emotions))
	for i, emotion := range emotions {
		col, ok := columns[emotion]
		if !ok {
			return nil, fmt.Errorf("lexicon has no %q column", emotion)
		}
		emotionCols[i] = col
	}

	lex := &Lexicon{Emotions: emotions, words: make(map[string][]bool)}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lexicon line %d: %w", line, err)
		}
		if wordCol >= len(record) {
			continue
		}

		word := strings.TrimSpace(record[wordCol])
		if word == "" {
			continue
		}
		if _, dup := lex.words[word]; dup {
			continue
		}

		flags := make([]bool, len(emotions))
		for i, col := range emotionCols {
			if col >= len(record) {
				continue
			}
			flags[i], err = parseFlag(record[col])
			if err != nil {
				return nil, fmt.Errorf("lexicon line %d column %s: %w", line, emotions[i], err)
			}
		}
		lex.words[word] = flags
	}
	return lex, nil
}

func parseFlag(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// MainEmotion tallies the flags of every token and returns the emotion with the
// highest count. Ties go to the emotion listed first. Without any hit the
// neutral label is returned.
func (l *Lexicon) MainEmotion(tokens []string) string {
	tally := make([]int, len(l.Emotions))
	for _, tok := range tokens {
		for i, present := range l.words[tok] {
			if present {
				tally[i]++
			}
		}
	}

	best, bestCount := -1, 0
	for i, count := range tally {
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return constants.NeutralSentiment
	}
	return l.Emotions[best]
}

// ScoreEmotion sets main_sentiment from the lower-cased lemma_str tokens.
func ScoreEmotion(rows []domain.SongRow, lexicon *Lexicon) []domain.SongRow {
	for i := range rows {
		rows[i].MainSentiment = lexicon.MainEmotion(strings.Fields(strings.ToLower(rows[i].LemmaStr)))
	}
	return rows
}
