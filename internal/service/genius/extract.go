package genius

import (
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"golang.org/x/net/html"
)

var sectionHeader = regexp.MustCompile(`\[(?:Couplet \d+|Refrain)\]`)

// ExtractVerseRefrain splits lyrics on "[Couplet N]" and "[Refrain]" headers. A
// section starts after its header line and runs to the next header of either kind
// or the end of the text. Headers not followed by a newline open no section.
func ExtractVerseRefrain(lyrics string) (verses, refrains []string) {
	verses, refrains = []string{}, []string{}

	headers := sectionHeader.FindAllStringIndex(lyrics, -1)
	for i, loc := range headers {
		start := loc[1]
		if !strings.HasPrefix(lyrics[start:], "\n") {
			continue
		}
		start++

		end := len(lyrics)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}

		body := lyrics[start:end]
		if strings.HasPrefix(lyrics[loc[0]:loc[1]], "[Refrain") {
			refrains = append(refrains, body)
		} else {
			verses = append(verses, body)
		}
	}
	return verses, refrains
}

// SanitizeFilename keeps letters, digits, space and "._-()" and replaces every
// other rune with "_". Distinct names may collide.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" ._-()", r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// extractLyricsText finds the lyrics container of a song page and returns its
// text nodes joined by newlines. found is false when the page has no container.
func extractLyricsText(body io.Reader) (text string, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", false, err
	}

	container := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isLyricsContainer(s.AttrOr("class", ""))
	}).First()
	if container.Length() == 0 {
		return "", false, nil
	}

	parts := make([]string, 0, 64)
	collectText(container.Nodes[0], &parts)
	return strings.Join(parts, "\n"), true, nil
}

func isLyricsContainer(classAttr string) bool {
	for _, class := range strings.Fields(classAttr) {
		if class == constants.GeniusConfig.LyricsClassExact || strings.Contains(class, constants.GeniusConfig.LyricsClassRoot) {
			return true
		}
	}
	return false
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
