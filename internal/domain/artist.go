package domain

// Artist is a performer discovered on the streaming catalog.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// HasGenre reports whether genre is one of the artist's tags (exact match).
func (a *Artist) HasGenre(genre string) bool {
	if a == nil {
		return false
	}
	for _, g := range a.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a playlist entry. Only its artists are consulted.
type Track struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Artists []ArtistRef `json:"artists"`
}

// PrimaryArtistID returns the first listed artist id, or "" when unknown.
func (t *Track) PrimaryArtistID() string {
	if t == nil || len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].ID
}
