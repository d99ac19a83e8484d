package domain

// Song is a lyrics-provider entry for one artist.
type Song struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

// SongLyrics is the persisted form of a fetched song page.
type SongLyrics struct {
	Lyrics   string   `json:"lyrics"`
	Verses   []string `json:"verses"`
	Refrains []string `json:"refrains"`
}

// ArtistLyricsFile maps song title to its lyrics; one file per artist.
type ArtistLyricsFile map[string]SongLyrics

// RawSong is one song read back from an artist file. Lyrics is nil when the
// entry had no lyrics field.
type RawSong struct {
	ArtistName string   `json:"artist_name"`
	SongName   string   `json:"song_name"`
	Lyrics     *string  `json:"lyrics"`
	Verses     []string `json:"verses"`
	Refrains   []string `json:"refrains"`
}

// SongRow is the enriched, columnar record written by the enrichment pass.
type SongRow struct {
	ArtistName       string   `parquet:"artist_name" json:"artist_name"`
	SongName         string   `parquet:"song_name" json:"song_name"`
	Lyrics           string   `parquet:"lyrics" json:"lyrics"`
	Verses           []string `parquet:"verses,list" json:"verses"`
	Refrains         []string `parquet:"refrains,list" json:"refrains"`
	NbCharacters     int64    `parquet:"nb_characters" json:"nb_characters"`
	NbWords          int64    `parquet:"nb_words" json:"nb_words"`
	CleanStr         string   `parquet:"clean_str" json:"clean_str"`
	LemmaStr         string   `parquet:"lemma_str" json:"lemma_str"`
	TopWords         []string `parquet:"most_frequent_words_top_5,list" json:"most_frequent_words_top_5"`
	MostFrequentWord string   `parquet:"most_frequent_word" json:"most_frequent_word"`
	MainSentiment    string   `parquet:"main_sentiment" json:"main_sentiment"`
}

// NewSongRow copies a raw record into a row; missing lyrics become "".
func NewSongRow(raw RawSong) SongRow {
	row := SongRow{
		ArtistName: raw.ArtistName,
		SongName:   raw.SongName,
		Verses:     raw.Verses,
		Refrains:   raw.Refrains,
	}
	if raw.Lyrics != nil {
		row.Lyrics = *raw.Lyrics
	}
	return row
}
