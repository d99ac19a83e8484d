package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/domain"
)

type corpusEntry struct {
	Lyrics   *string  `json:"lyrics"`
	Verses   []string `json:"verses"`
	Refrains []string `json:"refrains"`
}

// LoadCorpus reads every *.json artist file in dir (sorted by name) and returns
// one record per song, in file order. The artist name is the file name without
// its extension.
func LoadCorpus(dir string) ([]domain.RawSong, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list corpus files: %w", err)
	}
	sort.Strings(files)

	songs := make([]domain.RawSong, 0, len(files)*32)
	for _, path := range files {
		artist := strings.TrimSuffix(filepath.Base(path), ".json")
		fileSongs, err := loadArtistFile(path, artist)
		if err != nil {
			return nil, err
		}
		songs = append(songs, fileSongs...)
	}
	return songs, nil
}

// loadArtistFile streams the top-level object so songs keep their file order.
func loadArtistFile(path, artist string) ([]domain.RawSong, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("read %s: expected a JSON object of songs", path)
	}

	songs := make([]domain.RawSong, 0, 32)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		title, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("read %s: unexpected token %v", path, keyTok)
		}

		var entry corpusEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode song %q in %s: %w", title, path, err)
		}

		songs = append(songs, domain.RawSong{
			ArtistName: artist,
			SongName:   title,
			Lyrics:     entry.Lyrics,
			Verses:     entry.Verses,
			Refrains:   entry.Refrains,
		})
	}
	return songs, nil
}
