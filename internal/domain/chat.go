package domain

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Chunk is a piece of song text ready to be embedded.
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Source is a retrieved chunk backing a chat answer.
type Source struct {
	ArtistName string  `json:"artist_name"`
	SongName   string  `json:"song_name"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Payload keys stored with every vector point.
const (
	PayloadText          = "text"
	PayloadArtistName    = "artist_name"
	PayloadSongName      = "song_name"
	PayloadMainSentiment = "main_sentiment"
	PayloadSource        = "source"
	PayloadChunkIndex    = "chunk_index"
)
