// Package store persists sessions, turns and progress projections.
// Two interchangeable backends implement the same contract: a gorm
// relational store (postgres or sqlite) and a crash-safe flat-file
// store. The engine never knows which one is active.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/logger"
)

// ErrNotFound is returned when a session or projection does not exist.
var ErrNotFound = errors.New("not found")

// Turn speakers.
const (
	SpeakerLearner = "learner"
	SpeakerSystem  = "system"
)

// Turn kinds.
const (
	KindQuestion   = "question"
	KindAnswer     = "answer"
	KindHint       = "hint"
	KindSkip       = "skip"
	KindCompletion = "completion"
)

// SessionRecord is the persisted session row. Concept is the question
// sequence snapshot bound at start: edits to the live concept graph
// never reach an in-flight session.
type SessionRecord struct {
	ID                string               `json:"id"`
	UserID            string               `json:"user_id"`
	StartedAt         time.Time            `json:"started_at"`
	Concept           conceptgraph.Concept `json:"concept"`
	NextQuestionIndex int                  `json:"next_q_idx"`
	HintLevel         int                  `json:"hint_level"`
}

// TurnRecord is one append-only dialogue entry. Turns are never
// mutated or deleted; load order equals append order.
type TurnRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`

	// TimeSpent is the learner's elapsed seconds for answer turns.
	// Zero means not reported.
	TimeSpent float64 `json:"time_spent,omitempty"`
}

// ProgressRecord is the cached progress projection. It is rebuildable
// from turns and never authoritative.
type ProgressRecord struct {
	SessionID         string    `json:"session_id"`
	QuestionsAnswered int       `json:"questions_answered"`
	TotalQuestions    int       `json:"total_questions"`
	ConceptsCovered   []string  `json:"concepts_covered"`
	TimesPerQuestion  []float64 `json:"times_per_question"`
}

// Store is the persistence contract shared by both backends.
// Turn writes are append-only; session updates are limited to the
// cursor fields (next question index, hint level).
type Store interface {
	CreateSession(ctx context.Context, rec *SessionRecord) error
	UpdateSessionCursor(ctx context.Context, sessionID string, nextQuestionIndex, hintLevel int) error
	LoadSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	ListSessionsForUser(ctx context.Context, userID string) ([]SessionRecord, error)
	CountSessions(ctx context.Context) (int64, error)

	// AppendTurn fails with ErrNotFound when the session does not
	// exist. LoadTurns returns an empty slice for unknown sessions.
	AppendTurn(ctx context.Context, rec *TurnRecord) error
	LoadTurns(ctx context.Context, sessionID string) ([]TurnRecord, error)

	SaveProgress(ctx context.Context, rec *ProgressRecord) error
	LoadProgress(ctx context.Context, sessionID string) (*ProgressRecord, error)

	Close() error
}

// Config selects and configures the persistence backend.
type Config struct {
	// Driver names the relational dialect: "postgres" or "sqlite".
	Driver string

	// DSN is the relational connection string. Empty means the
	// relational store is not configured at all.
	DSN string

	// FilePath is the flat-file store location, used when the
	// relational store is unconfigured or unreachable.
	FilePath string
}

// Open opens the configured backend. When the relational store is
// unreachable or cannot migrate, it degrades to the flat-file store
// and logs the degradation: availability over durability, but never
// silent.
func Open(cfg Config, log *logger.Logger) (Store, error) {
	if cfg.DSN != "" {
		s, err := OpenRelational(cfg.Driver, cfg.DSN, log)
		if err == nil {
			return s, nil
		}
		log.Warn("relational store unavailable, degrading to flat-file store",
			"driver", cfg.Driver,
			"path", cfg.FilePath,
			"error", err,
		)
	} else {
		log.Info("no database configured, using flat-file store", "path", cfg.FilePath)
	}
	return OpenFile(cfg.FilePath, log)
}
