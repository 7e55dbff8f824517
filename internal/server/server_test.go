package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/engine"
	"github.com/abhisek/socratic/internal/logger"
	"github.com/abhisek/socratic/internal/store"
)

const serverSeed = `[
  {
    "class": 10,
    "subject": "Biology",
    "title": "Photosynthesis",
    "related": ["Respiration in Plants"],
    "questions": [
      {"question": "What do plants need to make food?", "hints": ["Think about light."]},
      {"question": "Why are leaves green?"}
    ]
  }
]`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	graph, err := conceptgraph.Load([]byte(serverSeed))
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "sessions.json"), logger.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(graph, st, engine.Options{}, logger.NewNop())
	srv := httptest.NewServer(NewRouter(eng, logger.NewNop(), "prod", []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/session/start", map[string]any{
		"user_id": "asha",
		"class":   10,
		"subject": "Biology",
		"concept": "Photosynthesis",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: got status %d: %v", resp.StatusCode, body)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatalf("start: no session_id in %v", body)
	}
	return id
}

func TestStartAndTurnFlow(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/session/turn", map[string]any{
		"session_id": id,
		"answer":     "Sunlight and water",
		"time_spent": 12,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn: got status %d: %v", resp.StatusCode, body)
	}
	if body["question"] != "Why are leaves green?" {
		t.Errorf("got question %v", body["question"])
	}

	resp, body = postJSON(t, srv.URL+"/session/turn", map[string]any{
		"session_id": id,
		"answer":     "Because of chlorophyll",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final turn: got status %d: %v", resp.StatusCode, body)
	}
	if body["question_type"] != "completed" {
		t.Errorf("got type %v, want completed", body["question_type"])
	}
}

func TestStart_MalformedBody(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/session/start", "application/json", bytes.NewReader([]byte(`{"user_id":`)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", resp.StatusCode)
	}
}

func TestStart_UnknownConcept(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := postJSON(t, srv.URL+"/session/start", map[string]any{
		"user_id": "asha",
		"class":   10,
		"subject": "Biology",
		"concept": "Osmosis",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want 404", resp.StatusCode)
	}
}

func TestTurn_EmptyAnswer(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/session/turn", map[string]any{
		"session_id": id,
		"answer":     "   ",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("got status %d, want 422: %v", resp.StatusCode, body)
	}
	if body["field"] != "answer" {
		t.Errorf("got field %v, want answer", body["field"])
	}
}

func TestTurn_CompletedSessionConflicts(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	for i := 0; i < 2; i++ {
		resp, body := postJSON(t, srv.URL+"/session/turn", map[string]any{
			"session_id": id,
			"answer":     fmt.Sprintf("answer %d", i),
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("turn %d: got status %d: %v", i, resp.StatusCode, body)
		}
	}

	resp, body := postJSON(t, srv.URL+"/session/turn", map[string]any{
		"session_id": id,
		"answer":     "one more",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("got status %d, want 409: %v", resp.StatusCode, body)
	}
	if body["state"] != "completed" {
		t.Errorf("got state %v, want completed", body["state"])
	}
}

func TestHintRoute(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := getJSON(t, srv.URL+"/hint/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	if body["hint"] != "Think about light." {
		t.Errorf("got hint %v", body["hint"])
	}
	if body["hint_level"] != float64(1) {
		t.Errorf("got hint_level %v, want 1", body["hint_level"])
	}

	resp, _ = getJSON(t, srv.URL+"/hint/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d for unknown session, want 404", resp.StatusCode)
	}
}

func TestRetryAndSkipRoutes(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/retry/"+id, map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry: got status %d: %v", resp.StatusCode, body)
	}
	if body["question"] != "What do plants need to make food?" {
		t.Errorf("retry: got question %v", body["question"])
	}

	resp, body = postJSON(t, srv.URL+"/skip/"+id, map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("skip: got status %d: %v", resp.StatusCode, body)
	}
	if body["question"] != "Why are leaves green?" {
		t.Errorf("skip: got question %v", body["question"])
	}
}

func TestProgressRoute(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	if resp, body := postJSON(t, srv.URL+"/session/turn", map[string]any{
		"session_id": id, "answer": "sunlight", "time_spent": 9,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("turn: got status %d: %v", resp.StatusCode, body)
	}

	resp, body := getJSON(t, srv.URL+"/progress/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	if body["questions_answered"] != float64(1) || body["total_questions"] != float64(2) {
		t.Errorf("got progress %v/%v, want 1/2", body["questions_answered"], body["total_questions"])
	}
}

func TestReflectionRoute(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := getJSON(t, srv.URL+"/reflection/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	if body["summary_text"] == "" {
		t.Error("reflection has no summary")
	}
	suggestions, ok := body["suggested_next_concepts"].([]any)
	if !ok || len(suggestions) != 1 {
		t.Errorf("got suggestions %v, want one", body["suggested_next_concepts"])
	}
}

func TestDialogueRoute(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, body := getJSON(t, srv.URL+"/dialogue/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	turns, ok := body["turns"].([]any)
	if !ok || len(turns) != 1 {
		t.Fatalf("got turns %v, want one", body["turns"])
	}
}

func TestConceptsRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv.URL+"/concepts")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	concepts, ok := body["concepts"].([]any)
	if !ok || len(concepts) != 1 {
		t.Errorf("got concepts %v, want one", body["concepts"])
	}

	resp, body = getJSON(t, srv.URL+"/concepts?class=10&subject=biology")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	if concepts, ok := body["concepts"].([]any); !ok || len(concepts) != 1 {
		t.Errorf("filtered: got concepts %v, want one", body["concepts"])
	}
}

func TestHealthRoute(t *testing.T) {
	srv := newTestServer(t)
	startSession(t, srv)

	resp, body := getJSON(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "ok" {
		t.Errorf("got status %v, want ok", body["status"])
	}
	if body["sessions"] != float64(1) {
		t.Errorf("got sessions %v, want 1", body["sessions"])
	}
}
