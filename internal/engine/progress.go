package engine

import (
	"time"

	"github.com/abhisek/socratic/internal/store"
)

// maxAnswerGap caps how long a question-to-answer interval may be and
// still count as time spent thinking. Longer gaps mean the learner
// walked away, so they are excluded from timing.
const maxAnswerGap = time.Hour

// Progress is the derived view of how far a session has come. It is
// recomputed from the turn log on demand; the persisted projection is
// only a cache.
type Progress struct {
	SessionID         string    `json:"session_id"`
	ConceptTitle      string    `json:"concept_title"`
	QuestionsAnswered int       `json:"questions_answered"`
	TotalQuestions    int       `json:"total_questions"`
	Completed         bool      `json:"completed"`
	ConceptsCovered   []string  `json:"concepts_covered"`
	TimesPerQuestion  []float64 `json:"times_per_question"`
	TotalTime         float64   `json:"total_time"`
	AverageTime       float64   `json:"avg_time_per_question"`
}

// computeProgress derives progress from the session row and its turn
// log. covered is the rolling set of concept titles across the user's
// sessions.
func computeProgress(sess *store.SessionRecord, turns []store.TurnRecord, covered []string) *Progress {
	p := &Progress{
		SessionID:        sess.ID,
		ConceptTitle:     sess.Concept.Title,
		TotalQuestions:   len(sess.Concept.Questions),
		Completed:        sess.NextQuestionIndex >= len(sess.Concept.Questions),
		ConceptsCovered:  covered,
		TimesPerQuestion: answerTimes(turns),
	}
	if p.ConceptsCovered == nil {
		p.ConceptsCovered = []string{}
	}

	// Skips advance the sequence just like answers, so both count
	// toward questions answered.
	for _, t := range turns {
		if t.Kind == store.KindAnswer || t.Kind == store.KindSkip {
			p.QuestionsAnswered++
		}
	}
	for _, secs := range p.TimesPerQuestion {
		p.TotalTime += secs
	}
	if n := len(p.TimesPerQuestion); n > 0 {
		p.AverageTime = p.TotalTime / float64(n)
	}
	return p
}

// answerTimes extracts per-answer thinking times. A reported TimeSpent
// wins; otherwise the interval from the preceding question turn is
// used, unless the learner was away longer than maxAnswerGap.
func answerTimes(turns []store.TurnRecord) []float64 {
	times := []float64{}
	var lastQuestion time.Time

	for _, t := range turns {
		switch t.Kind {
		case store.KindQuestion:
			lastQuestion = t.Timestamp
		case store.KindAnswer:
			if t.TimeSpent > 0 {
				times = append(times, t.TimeSpent)
			} else if !lastQuestion.IsZero() {
				gap := t.Timestamp.Sub(lastQuestion)
				if gap > 0 && gap <= maxAnswerGap {
					times = append(times, gap.Seconds())
				}
			}
			lastQuestion = time.Time{}
		}
	}
	return times
}
