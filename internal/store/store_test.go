package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/logger"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := OpenFile(filepath.Join(t.TempDir(), "sessions.json"), logger.NewNop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	return fs
}

func testConcept() conceptgraph.Concept {
	return conceptgraph.Concept{
		ClassGrade: 10,
		Subject:    "Biology",
		Title:      "Photosynthesis",
		Keywords:   []string{"chlorophyll", "sunlight"},
		Related:    []string{"Respiration in Plants"},
		Questions: []conceptgraph.Question{
			{Text: "What do plants need to make food?", Type: "elicitation", Hints: []string{"Think about light."}},
			{Text: "Why are leaves green?", Type: "elicitation"},
		},
	}
}

func testSession(id string) *SessionRecord {
	return &SessionRecord{
		ID:        id,
		UserID:    "user-1",
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Concept:   testConcept(),
	}
}

// runStoreContract exercises the Store contract shared by both
// backends.
func runStoreContract(t *testing.T, st Store) {
	ctx := context.Background()

	t.Run("session roundtrip", func(t *testing.T) {
		if err := st.CreateSession(ctx, testSession("s-1")); err != nil {
			t.Fatalf("create session: %v", err)
		}
		got, err := st.LoadSession(ctx, "s-1")
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		if got.UserID != "user-1" {
			t.Errorf("got user %q, want user-1", got.UserID)
		}
		if got.Concept.Title != "Photosynthesis" {
			t.Errorf("got concept %q, want Photosynthesis", got.Concept.Title)
		}
		if len(got.Concept.Questions) != 2 {
			t.Errorf("got %d questions in snapshot, want 2", len(got.Concept.Questions))
		}
	})

	t.Run("load unknown session", func(t *testing.T) {
		_, err := st.LoadSession(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("cursor update", func(t *testing.T) {
		if err := st.UpdateSessionCursor(ctx, "s-1", 1, 2); err != nil {
			t.Fatalf("update cursor: %v", err)
		}
		got, err := st.LoadSession(ctx, "s-1")
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		if got.NextQuestionIndex != 1 || got.HintLevel != 2 {
			t.Errorf("got cursor (%d, %d), want (1, 2)", got.NextQuestionIndex, got.HintLevel)
		}
		if err := st.UpdateSessionCursor(ctx, "missing", 1, 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v for unknown session, want ErrNotFound", err)
		}
	})

	t.Run("turns append in order", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i, text := range []string{"first", "second", "third"} {
			rec := &TurnRecord{
				SessionID: "s-1",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				Speaker:   SpeakerSystem,
				Kind:      KindQuestion,
				Text:      text,
			}
			if err := st.AppendTurn(ctx, rec); err != nil {
				t.Fatalf("append turn %d: %v", i, err)
			}
			if rec.ID == 0 {
				t.Errorf("turn %d: ID not assigned", i)
			}
		}
		turns, err := st.LoadTurns(ctx, "s-1")
		if err != nil {
			t.Fatalf("load turns: %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("got %d turns, want 3", len(turns))
		}
		for i := 1; i < len(turns); i++ {
			if turns[i].ID <= turns[i-1].ID {
				t.Errorf("turn IDs not increasing: %d then %d", turns[i-1].ID, turns[i].ID)
			}
		}
		if turns[0].Text != "first" || turns[2].Text != "third" {
			t.Errorf("turns out of order: %q ... %q", turns[0].Text, turns[2].Text)
		}
	})

	t.Run("turns for unknown session", func(t *testing.T) {
		if err := st.AppendTurn(ctx, &TurnRecord{SessionID: "missing", Speaker: SpeakerSystem, Kind: KindQuestion, Text: "x"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("append: got %v, want ErrNotFound", err)
		}
		turns, err := st.LoadTurns(ctx, "missing")
		if err != nil {
			t.Errorf("load: unexpected error %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("got %d turns for unknown session, want 0", len(turns))
		}
	})

	t.Run("progress upsert", func(t *testing.T) {
		if _, err := st.LoadProgress(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("got %v before save, want ErrNotFound", err)
		}
		rec := &ProgressRecord{
			SessionID:         "s-1",
			QuestionsAnswered: 1,
			TotalQuestions:    2,
			ConceptsCovered:   []string{"Photosynthesis"},
			TimesPerQuestion:  []float64{12.5},
		}
		if err := st.SaveProgress(ctx, rec); err != nil {
			t.Fatalf("save progress: %v", err)
		}
		rec.QuestionsAnswered = 2
		rec.TimesPerQuestion = []float64{12.5, 8}
		if err := st.SaveProgress(ctx, rec); err != nil {
			t.Fatalf("save progress again: %v", err)
		}
		got, err := st.LoadProgress(ctx, "s-1")
		if err != nil {
			t.Fatalf("load progress: %v", err)
		}
		if got.QuestionsAnswered != 2 {
			t.Errorf("got %d answered, want 2 (upsert)", got.QuestionsAnswered)
		}
		if len(got.TimesPerQuestion) != 2 {
			t.Errorf("got %d times, want 2", len(got.TimesPerQuestion))
		}
		if err := st.SaveProgress(ctx, &ProgressRecord{SessionID: "missing"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v for unknown session, want ErrNotFound", err)
		}
	})

	t.Run("list sessions for user", func(t *testing.T) {
		second := testSession("s-2")
		second.StartedAt = second.StartedAt.Add(time.Hour)
		second.Concept.Title = "Respiration in Plants"
		if err := st.CreateSession(ctx, second); err != nil {
			t.Fatalf("create second session: %v", err)
		}
		other := testSession("s-other")
		other.UserID = "user-2"
		if err := st.CreateSession(ctx, other); err != nil {
			t.Fatalf("create other-user session: %v", err)
		}

		sessions, err := st.ListSessionsForUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("got %d sessions, want 2", len(sessions))
		}
		if sessions[0].ID != "s-1" || sessions[1].ID != "s-2" {
			t.Errorf("got order %q, %q; want s-1, s-2", sessions[0].ID, sessions[1].ID)
		}

		none, err := st.ListSessionsForUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("list sessions for unknown user: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("got %d sessions for unknown user, want 0", len(none))
		}
	})

	t.Run("count sessions", func(t *testing.T) {
		count, err := st.CountSessions(ctx)
		if err != nil {
			t.Fatalf("count sessions: %v", err)
		}
		if count != 3 {
			t.Errorf("got %d sessions, want 3", count)
		}
	})
}

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, newFileStore(t))
}

// TestRelationalStore_Contract runs the same contract against a real
// database when one is provided.
func TestRelationalStore_Contract(t *testing.T) {
	dsn := os.Getenv("SOCRATIC_TEST_DSN")
	if dsn == "" {
		t.Skip("SOCRATIC_TEST_DSN not set")
	}
	st, err := OpenRelational(os.Getenv("SOCRATIC_TEST_DRIVER"), dsn, logger.NewNop())
	if err != nil {
		t.Fatalf("open relational store: %v", err)
	}
	defer st.Close()
	runStoreContract(t, st)
}

