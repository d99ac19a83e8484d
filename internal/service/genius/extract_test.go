package genius

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractVerseRefrain(t *testing.T) {
	lyrics := "[Couplet 1]\nligne a\nligne b\n[Refrain]\nrefrain x\n[Couplet 2]\nligne c"

	verses, refrains := ExtractVerseRefrain(lyrics)

	wantVerses := []string{"ligne a\nligne b\n", "ligne c"}
	wantRefrains := []string{"refrain x\n"}
	if !reflect.DeepEqual(verses, wantVerses) {
		t.Fatalf("verses = %q, want %q", verses, wantVerses)
	}
	if !reflect.DeepEqual(refrains, wantRefrains) {
		t.Fatalf("refrains = %q, want %q", refrains, wantRefrains)
	}

	again, againRefrains := ExtractVerseRefrain(lyrics)
	if !reflect.DeepEqual(again, verses) || !reflect.DeepEqual(againRefrains, refrains) {
		t.Fatalf("extraction should be deterministic")
	}
}

func TestExtractVerseRefrainEdgeCases(t *testing.T) {
	tests := []struct {
		name         string
		lyrics       string
		wantVerses   []string
		wantRefrains []string
	}{
		{"no headers", "juste du texte", []string{}, []string{}},
		{"empty", "", []string{}, []string{}},
		{"header without newline", "[Refrain] collé\n[Couplet 1]\nfin", []string{"fin"}, []string{}},
		{"other headers are text", "[Intro]\nyo\n[Couplet 12]\na\n[Outro]\nb", []string{"a\n[Outro]\nb"}, []string{}},
		{"empty section", "[Refrain]\n[Couplet 1]\nx", []string{"x"}, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verses, refrains := ExtractVerseRefrain(tt.lyrics)
			if !reflect.DeepEqual(verses, tt.wantVerses) {
				t.Errorf("verses = %q, want %q", verses, tt.wantVerses)
			}
			if !reflect.DeepEqual(refrains, tt.wantRefrains) {
				t.Errorf("refrains = %q, want %q", refrains, tt.wantRefrains)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"DJ/Fédé*":        "DJ_Fédé_",
		"Alpha Wann":      "Alpha Wann",
		"Sch (Marseille)": "Sch (Marseille)",
		"a:b?c":           "a_b_c",
		"Mister V.":       "Mister V.",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractLyricsText(t *testing.T) {
	page := `<html><body>
<div class="header">Menu</div>
<div class="SongPage Lyrics__Root-sc-1ynbvzw-1"><p>ligne 1<br/>ligne 2</p><script>var x = 1;</script></div>
<div class="lyrics">second container</div>
</body></html>`

	text, found, err := extractLyricsText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("extractLyricsText: %v", err)
	}
	if !found {
		t.Fatalf("container should be found")
	}
	if text != "ligne 1\nligne 2" {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractLyricsTextExactClass(t *testing.T) {
	page := `<div class="lyrics-wrapper">nope</div><div class="song lyrics"><p>[Refrain]
oh</p></div>`

	text, found, err := extractLyricsText(strings.NewReader(page))
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if text != "[Refrain]\noh" {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractLyricsTextMissingContainer(t *testing.T) {
	_, found, err := extractLyricsText(strings.NewReader(`<div class="lyricsish">x</div>`))
	if err != nil {
		t.Fatalf("extractLyricsText: %v", err)
	}
	if found {
		t.Fatalf("no container should be found")
	}
}
