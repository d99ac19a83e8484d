package vectorstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	APIKey string
}

type fakeQdrant struct {
	mu      sync.Mutex
	calls   []recordedCall
	exists  bool
	results string
}

func (f *fakeQdrant) handler(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
		APIKey: r.Header.Get("api-key"),
	})
	exists := f.exists
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/lyrics":
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points_count":12},"status":"ok"}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/lyrics":
		f.mu.Lock()
		f.exists = true
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/lyrics/points":
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/lyrics/points/search":
		_, _ = w.Write([]byte(f.results))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *Qdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	client := NewQdrant(QdrantConfig{URL: server.URL + "/", APIKey: "k", Collection: "lyrics"}, zap.NewNop())
	return fake, client
}

func TestEnsureCollectionCreatesOnce(t *testing.T) {
	fake, client := newFakeQdrant(t)

	for i := 0; i < 2; i++ {
		if err := client.EnsureCollection(context.Background(), 384); err != nil {
			t.Fatalf("EnsureCollection: %v", err)
		}
	}

	var puts int
	for _, c := range fake.calls {
		if c.APIKey != "k" {
			t.Errorf("missing api key on %s %s", c.Method, c.Path)
		}
		if c.Method == http.MethodPut {
			puts++
			vectors, _ := c.Body["vectors"].(map[string]any)
			if vectors["size"] != float64(384) || vectors["distance"] != "Cosine" {
				t.Fatalf("create body = %v", c.Body)
			}
		}
	}
	if puts != 1 {
		t.Fatalf("collection should be created once, got %d PUTs", puts)
	}

	if err := client.EnsureCollection(context.Background(), 0); err == nil {
		t.Fatalf("zero dimension should be rejected")
	}
}

func TestUpsertWaitsAndSendsPoints(t *testing.T) {
	fake, client := newFakeQdrant(t)

	err := client.Upsert(context.Background(), []Point{
		{ID: "3f1c9c5e-0000-5000-8000-000000000001", Vector: []float32{0.1, 0.2}, Payload: map[string]any{"artist_name": "Nekfeu"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	call := fake.calls[0]
	if call.Method != http.MethodPut || call.Path != "/collections/lyrics/points" || call.Query != "wait=true" {
		t.Fatalf("call = %+v", call)
	}
	points, _ := call.Body["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points = %v", call.Body)
	}

	if err := client.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("empty upsert should not call the server")
	}
}

func TestSearchDecodesPayload(t *testing.T) {
	fake, client := newFakeQdrant(t)
	fake.results = `{"result":[
		{"id":"a","score":0.91,"payload":{"artist_name":"Nekfeu","song_name":"Egérie","text":"couplet"}},
		{"id":7,"score":0.42,"payload":{"artist_name":"Damso"}}
	],"status":"ok"}`

	got, err := client.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].PayloadString("song_name") != "Egérie" || got[0].Score != 0.91 {
		t.Fatalf("first result = %+v", got[0])
	}
	if got[1].PayloadString("text") != "" {
		t.Fatalf("missing payload key should be empty")
	}

	body := fake.calls[0].Body
	if body["limit"] != float64(2) || body["with_payload"] != true {
		t.Fatalf("search body = %v", body)
	}
}

func TestCountAndErrors(t *testing.T) {
	fake, client := newFakeQdrant(t)

	if _, err := client.Count(context.Background()); err == nil {
		t.Fatalf("missing collection should fail")
	}

	fake.mu.Lock()
	fake.exists = true
	fake.mu.Unlock()
	n, err := client.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 12 {
		t.Fatalf("count = %d", n)
	}
}
