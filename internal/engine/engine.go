// Package engine drives Socratic dialogue sessions: starting them,
// sequencing questions, laddering hints and deriving progress. All
// state lives in the store; the engine itself only holds per-session
// locks, so any number of engines over the same store stay consistent
// for reads while a single process owns mutations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/logger"
	"github.com/abhisek/socratic/internal/reflection"
	"github.com/abhisek/socratic/internal/socgen"
	"github.com/abhisek/socratic/internal/store"
)

// Question types surfaced to callers.
const (
	TypeQuestion  = "question"
	TypeCompleted = "completed"
)

const completionMessage = "Congratulations! You have worked through every question for this concept. Ask for a reflection to see how it went."

const skipMarker = "(skipped)"

// defaultCollaboratorTimeout bounds every LLM call so a slow provider
// can only delay a response, never hang it.
const defaultCollaboratorTimeout = 10 * time.Second

// Options configures optional engine collaborators.
type Options struct {
	// Generator produces adaptive follow-up questions. Nil means the
	// static seed questions are always used.
	Generator socgen.Generator

	// Reflector builds reflection summaries. Nil gets a template-only
	// reflector.
	Reflector *reflection.Generator

	// CollaboratorTimeout bounds each generator call. Zero selects the
	// default.
	CollaboratorTimeout time.Duration
}

// Engine orchestrates sessions over a concept graph and a store.
type Engine struct {
	graph   *conceptgraph.Graph
	store   store.Store
	gen     socgen.Generator
	refl    *reflection.Generator
	log     *logger.Logger
	timeout time.Duration

	locks sessionLocks
	now   func() time.Time
}

// New builds an Engine.
func New(graph *conceptgraph.Graph, st store.Store, opts Options, log *logger.Logger) *Engine {
	refl := opts.Reflector
	if refl == nil {
		refl = reflection.New(nil, log)
	}
	timeout := opts.CollaboratorTimeout
	if timeout <= 0 {
		timeout = defaultCollaboratorTimeout
	}
	return &Engine{
		graph:   graph,
		store:   st,
		gen:     opts.Generator,
		refl:    refl,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// StartResult is what a freshly started session looks like to the
// caller.
type StartResult struct {
	SessionID      string `json:"session_id"`
	ConceptTitle   string `json:"concept_title"`
	Question       string `json:"question,omitempty"`
	QuestionType   string `json:"question_type"`
	TotalQuestions int    `json:"total_questions"`
}

// TurnResult carries the system's next move after an answer, skip or
// retry.
type TurnResult struct {
	Question     string `json:"question,omitempty"`
	QuestionType string `json:"question_type"`
}

// HintResult is a single hint plus the ladder position after it.
type HintResult struct {
	Hint      string `json:"hint"`
	HintLevel int    `json:"hint_level"`
}

// Start resolves the concept, creates a session bound to a snapshot of
// its question sequence and emits the first question. The user is
// created implicitly on first contact.
func (e *Engine) Start(ctx context.Context, userID string, classGrade int, subject, conceptTitle string) (*StartResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	concept, err := e.graph.Resolve(classGrade, subject, conceptTitle)
	if err != nil {
		var nf *conceptgraph.ErrConceptNotFound
		if errors.As(err, &nf) {
			return nil, &NotFoundError{Resource: "concept", ID: conceptTitle}
		}
		return nil, err
	}

	sess := &store.SessionRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: e.now(),
		Concept:   *concept,
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	res := &StartResult{
		SessionID:      sess.ID,
		ConceptTitle:   concept.Title,
		TotalQuestions: len(concept.Questions),
	}

	if len(concept.Questions) == 0 {
		// Concepts with no questions complete immediately.
		if err := e.appendTurn(ctx, sess.ID, store.SpeakerSystem, store.KindCompletion, completionMessage, 0); err != nil {
			return nil, err
		}
		res.QuestionType = TypeCompleted
	} else {
		first := concept.Questions[0]
		if err := e.appendTurn(ctx, sess.ID, store.SpeakerSystem, store.KindQuestion, first.Text, 0); err != nil {
			return nil, err
		}
		res.Question = first.Text
		res.QuestionType = TypeQuestion
	}

	e.refreshProgress(ctx, sess)
	e.log.Info("session started",
		"session_id", sess.ID, "user_id", userID, "concept", concept.Title)
	return res, nil
}

// SubmitAnswer records the learner's answer, advances the cursor and
// emits the next question or the completion marker. An empty answer is
// rejected before any state changes.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, answer string, timeSpent float64) (*TurnResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, &ValidationError{Field: "answer", Reason: "must not be empty"}
	}
	if timeSpent < 0 {
		return nil, &ValidationError{Field: "time_spent", Reason: "must not be negative"}
	}

	unlock := e.locks.lock(sessionID)
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	total := len(sess.Concept.Questions)
	if sess.NextQuestionIndex >= total {
		unlock()
		return nil, &InvalidStateError{SessionID: sessionID, State: StateCompleted, Op: "submit an answer"}
	}

	if err := e.appendTurn(ctx, sessionID, store.SpeakerLearner, store.KindAnswer, answer, timeSpent); err != nil {
		unlock()
		return nil, err
	}
	sess.NextQuestionIndex++
	sess.HintLevel = 0
	if err := e.store.UpdateSessionCursor(ctx, sessionID, sess.NextQuestionIndex, 0); err != nil {
		unlock()
		return nil, fmt.Errorf("advance session: %w", err)
	}

	if sess.NextQuestionIndex >= total {
		err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindCompletion, completionMessage, 0)
		e.refreshProgress(ctx, sess)
		unlock()
		if err != nil {
			return nil, err
		}
		e.log.Info("session completed", "session_id", sessionID, "concept", sess.Concept.Title)
		return &TurnResult{QuestionType: TypeCompleted}, nil
	}

	seed := sess.Concept.Questions[sess.NextQuestionIndex]
	if e.gen == nil {
		err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindQuestion, seed.Text, 0)
		e.refreshProgress(ctx, sess)
		unlock()
		if err != nil {
			return nil, err
		}
		return &TurnResult{Question: seed.Text, QuestionType: TypeQuestion}, nil
	}
	input := e.genInput(ctx, sess, seed, answer)
	e.refreshProgress(ctx, sess)
	unlock()

	return e.emitQuestion(ctx, sessionID, input, seed, sess.NextQuestionIndex)
}

// Hint returns the next rung of the hint ladder for the current (or,
// on a completed session, the last) question. Past the ladder's end
// the last entry repeats; the stored hint level never exceeds the
// ladder length. Questions without a ladder get a heuristic hint.
func (e *Engine) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	total := len(sess.Concept.Questions)
	if total == 0 {
		return nil, &InvalidStateError{SessionID: sessionID, State: StateCompleted, Op: "request a hint"}
	}

	qIdx := sess.NextQuestionIndex
	if qIdx >= total {
		qIdx = total - 1
	}
	q := sess.Concept.Questions[qIdx]

	var text string
	if len(q.Hints) > 0 {
		idx := sess.HintLevel
		if idx >= len(q.Hints) {
			idx = len(q.Hints) - 1
		}
		text = q.Hints[idx]
	} else {
		// No authored ladder for this question: derive a nudge from
		// the question and the dialogue so far.
		turns, err := e.store.LoadTurns(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load turns: %w", err)
		}
		text = heuristicHint(sess.Concept, q, lastLearnerAnswer(turns))
	}

	newLevel := sess.HintLevel + 1
	if newLevel > len(q.Hints) {
		newLevel = len(q.Hints)
	}

	if err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindHint, text, 0); err != nil {
		return nil, err
	}
	if err := e.store.UpdateSessionCursor(ctx, sessionID, sess.NextQuestionIndex, newLevel); err != nil {
		return nil, fmt.Errorf("record hint level: %w", err)
	}
	return &HintResult{Hint: text, HintLevel: newLevel}, nil
}

// Retry re-emits the most recently asked question verbatim and resets
// the hint ladder. The cursor does not move.
func (e *Engine) Retry(ctx context.Context, sessionID string) (*TurnResult, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns, err := e.store.LoadTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	var last string
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Kind == store.KindQuestion {
			last = turns[i].Text
			break
		}
	}
	if last == "" {
		return nil, &InvalidStateError{SessionID: sessionID, State: StateCompleted, Op: "retry a question"}
	}

	if err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindQuestion, last, 0); err != nil {
		return nil, err
	}
	if err := e.store.UpdateSessionCursor(ctx, sessionID, sess.NextQuestionIndex, 0); err != nil {
		return nil, fmt.Errorf("reset hint level: %w", err)
	}
	return &TurnResult{Question: last, QuestionType: TypeQuestion}, nil
}

// Skip records a skip marker for the current question and advances,
// emitting the next question or the completion marker.
func (e *Engine) Skip(ctx context.Context, sessionID string) (*TurnResult, error) {
	unlock := e.locks.lock(sessionID)
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	total := len(sess.Concept.Questions)
	if sess.NextQuestionIndex >= total {
		unlock()
		return nil, &InvalidStateError{SessionID: sessionID, State: StateCompleted, Op: "skip a question"}
	}

	if err := e.appendTurn(ctx, sessionID, store.SpeakerLearner, store.KindSkip, skipMarker, 0); err != nil {
		unlock()
		return nil, err
	}
	sess.NextQuestionIndex++
	sess.HintLevel = 0
	if err := e.store.UpdateSessionCursor(ctx, sessionID, sess.NextQuestionIndex, 0); err != nil {
		unlock()
		return nil, fmt.Errorf("advance session: %w", err)
	}

	if sess.NextQuestionIndex >= total {
		err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindCompletion, completionMessage, 0)
		e.refreshProgress(ctx, sess)
		unlock()
		if err != nil {
			return nil, err
		}
		return &TurnResult{QuestionType: TypeCompleted}, nil
	}

	seed := sess.Concept.Questions[sess.NextQuestionIndex]
	if e.gen == nil {
		err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindQuestion, seed.Text, 0)
		e.refreshProgress(ctx, sess)
		unlock()
		if err != nil {
			return nil, err
		}
		return &TurnResult{Question: seed.Text, QuestionType: TypeQuestion}, nil
	}
	input := e.genInput(ctx, sess, seed, "")
	e.refreshProgress(ctx, sess)
	unlock()

	return e.emitQuestion(ctx, sessionID, input, seed, sess.NextQuestionIndex)
}

// Progress recomputes progress from the turn log and refreshes the
// cached projection.
func (e *Engine) Progress(ctx context.Context, sessionID string) (*Progress, error) {
	unlock := e.locks.lock(sessionID)
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	turns, err := e.store.LoadTurns(ctx, sessionID)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	covered, err := e.conceptsCovered(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	p := computeProgress(sess, turns, covered)
	e.saveProgressCache(ctx, p)
	return p, nil
}

// Reflection summarizes the session's dialogue. It never fails once
// the session is found: collaborator trouble falls back to a template.
func (e *Engine) Reflection(ctx context.Context, sessionID string) (*reflection.Reflection, error) {
	unlock := e.locks.lock(sessionID)
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	turns, err := e.store.LoadTurns(ctx, sessionID)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	completed, err := e.completedConcepts(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	r := e.refl.Reflect(rctx, sess.Concept, turns, completed)
	return &r, nil
}

// Dialogue returns the full turn log in append order.
func (e *Engine) Dialogue(ctx context.Context, sessionID string) ([]store.TurnRecord, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	if _, err := e.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	turns, err := e.store.LoadTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	return turns, nil
}

// Concepts lists the concepts available for a class and subject. With
// no filter it lists the whole graph.
func (e *Engine) Concepts(classGrade int, subject string) []conceptgraph.ConceptRef {
	if classGrade == 0 && subject == "" {
		return e.graph.ListAll()
	}
	return e.graph.List(classGrade, subject)
}

// SessionCount reports how many sessions the store holds.
func (e *Engine) SessionCount(ctx context.Context) (int64, error) {
	return e.store.CountSessions(ctx)
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	sess, err := e.store.LoadSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "session", ID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (e *Engine) appendTurn(ctx context.Context, sessionID, speaker, kind, text string, timeSpent float64) error {
	rec := &store.TurnRecord{
		SessionID: sessionID,
		Timestamp: e.now(),
		Speaker:   speaker,
		Kind:      kind,
		Text:      text,
		TimeSpent: timeSpent,
	}
	if err := e.store.AppendTurn(ctx, rec); err != nil {
		return fmt.Errorf("append %s turn: %w", kind, err)
	}
	return nil
}

// genInput snapshots the session context the collaborator needs. The
// caller still holds the session lock; the snapshot is what lets the
// collaborator run after it is released.
func (e *Engine) genInput(ctx context.Context, sess *store.SessionRecord, seed conceptgraph.Question, lastAnswer string) socgen.Input {
	input := socgen.Input{
		ConceptTitle: sess.Concept.Title,
		Subject:      sess.Concept.Subject,
		ClassGrade:   sess.Concept.ClassGrade,
		Seed:         seed.Text,
		LastAnswer:   lastAnswer,
	}
	if e.gen == nil {
		return input
	}
	turns, err := e.store.LoadTurns(ctx, sess.ID)
	if err != nil {
		e.log.Warn("loading asked questions failed", "session_id", sess.ID, "error", err)
		return input
	}
	for _, t := range turns {
		if t.Kind == store.KindQuestion {
			input.Asked = append(input.Asked, t.Text)
		}
	}
	return input
}

// emitQuestion appends the question turn for questionIdx. The
// collaborator is consulted outside the session lock under a timeout;
// any failure falls back to the static seed question. The session can
// move on while the collaborator runs, so after re-acquiring the lock
// the cursor is checked again: a stale question is discarded and the
// caller sees the session's actual state instead.
func (e *Engine) emitQuestion(ctx context.Context, sessionID string, input socgen.Input, seed conceptgraph.Question, questionIdx int) (*TurnResult, error) {
	text := seed.Text
	gctx, cancel := context.WithTimeout(ctx, e.timeout)
	q, err := e.gen.Generate(gctx, input)
	cancel()
	if err != nil {
		e.log.Warn("adaptive question generation failed, using seed question",
			"session_id", sessionID, "error", err)
	} else {
		text = q.Text
	}

	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.NextQuestionIndex >= len(sess.Concept.Questions) {
		return &TurnResult{QuestionType: TypeCompleted}, nil
	}
	if sess.NextQuestionIndex != questionIdx {
		// A concurrent transition owns this slot now and has emitted
		// (or is emitting) its own question.
		turns, err := e.store.LoadTurns(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load turns: %w", err)
		}
		for i := len(turns) - 1; i >= 0; i-- {
			if turns[i].Kind == store.KindQuestion {
				return &TurnResult{Question: turns[i].Text, QuestionType: TypeQuestion}, nil
			}
		}
		cur := sess.Concept.Questions[sess.NextQuestionIndex]
		return &TurnResult{Question: cur.Text, QuestionType: TypeQuestion}, nil
	}

	if err := e.appendTurn(ctx, sessionID, store.SpeakerSystem, store.KindQuestion, text, 0); err != nil {
		return nil, err
	}
	return &TurnResult{Question: text, QuestionType: TypeQuestion}, nil
}

// refreshProgress rebuilds and saves the cached projection. Cache
// trouble is logged, never surfaced: the projection is derivable.
func (e *Engine) refreshProgress(ctx context.Context, sess *store.SessionRecord) {
	turns, err := e.store.LoadTurns(ctx, sess.ID)
	if err != nil {
		e.log.Warn("progress refresh: load turns failed", "session_id", sess.ID, "error", err)
		return
	}
	covered, err := e.conceptsCovered(ctx, sess.UserID)
	if err != nil {
		e.log.Warn("progress refresh: list sessions failed", "user_id", sess.UserID, "error", err)
		covered = []string{sess.Concept.Title}
	}
	e.saveProgressCache(ctx, computeProgress(sess, turns, covered))
}

func (e *Engine) saveProgressCache(ctx context.Context, p *Progress) {
	rec := &store.ProgressRecord{
		SessionID:         p.SessionID,
		QuestionsAnswered: p.QuestionsAnswered,
		TotalQuestions:    p.TotalQuestions,
		ConceptsCovered:   p.ConceptsCovered,
		TimesPerQuestion:  p.TimesPerQuestion,
	}
	if err := e.store.SaveProgress(ctx, rec); err != nil {
		e.log.Warn("saving progress cache failed", "session_id", p.SessionID, "error", err)
	}
}

// conceptsCovered is the rolling set of concept titles across a user's
// sessions, in the order they were first started.
func (e *Engine) conceptsCovered(ctx context.Context, userID string) ([]string, error) {
	sessions, err := e.store.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	seen := make(map[string]bool, len(sessions))
	covered := []string{}
	for _, s := range sessions {
		if !seen[s.Concept.Title] {
			seen[s.Concept.Title] = true
			covered = append(covered, s.Concept.Title)
		}
	}
	return covered, nil
}

// completedConcepts maps concept titles the user has finished.
func (e *Engine) completedConcepts(ctx context.Context, userID string) (map[string]bool, error) {
	sessions, err := e.store.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	completed := make(map[string]bool)
	for _, s := range sessions {
		if s.NextQuestionIndex >= len(s.Concept.Questions) {
			completed[s.Concept.Title] = true
		}
	}
	return completed, nil
}

func lastLearnerAnswer(turns []store.TurnRecord) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Kind == store.KindAnswer {
			return turns[i].Text
		}
	}
	return ""
}
