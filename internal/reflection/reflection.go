// Package reflection builds end-of-dialogue summaries. Summaries come
// from the LLM collaborator when one is configured and fall back to a
// deterministic template built from the turn log, so reflection never
// fails.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/logger"
	"github.com/abhisek/socratic/internal/store"
)

// maxSuggestions caps how many next concepts a reflection proposes.
const maxSuggestions = 3

// Reflection is the learner-facing summary of a session.
type Reflection struct {
	SummaryText           string   `json:"summary_text"`
	FocusAreas            []string `json:"focus_areas"`
	SuggestedNextConcepts []string `json:"suggested_next_concepts"`
}

// Generator produces reflections. A nil provider means template-only.
type Generator struct {
	provider llm.Provider
	log      *logger.Logger
}

// New creates a reflection Generator. provider may be nil.
func New(provider llm.Provider, log *logger.Logger) *Generator {
	return &Generator{provider: provider, log: log}
}

// Reflect summarizes a session. completed holds concept titles the
// learner has already finished; those are excluded from suggestions.
func (g *Generator) Reflect(ctx context.Context, concept conceptgraph.Concept, turns []store.TurnRecord, completed map[string]bool) Reflection {
	stats := collectStats(turns)

	summary, focus := "", []string{}
	if g.provider != nil {
		var err error
		summary, focus, err = g.generate(ctx, concept, turns, stats)
		if err != nil {
			g.log.Warn("reflection generation failed, using template",
				"concept", concept.Title, "error", err)
			summary, focus = "", nil
		}
	}
	if summary == "" {
		summary = templateSummary(concept, stats)
	}
	if focus == nil {
		focus = []string{}
	}

	return Reflection{
		SummaryText:           summary,
		FocusAreas:            focus,
		SuggestedNextConcepts: suggestNext(concept, completed),
	}
}

// suggestNext returns related concepts not yet completed, in the
// order the concept declares them, capped at maxSuggestions.
func suggestNext(concept conceptgraph.Concept, completed map[string]bool) []string {
	out := []string{}
	for _, title := range concept.RelatedConcepts() {
		if completed[title] {
			continue
		}
		out = append(out, title)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// dialogueStats are the counts the fallback template is built from.
type dialogueStats struct {
	Answered  int
	HintsUsed int
	Skipped   int
	TotalTime float64
}

func collectStats(turns []store.TurnRecord) dialogueStats {
	var s dialogueStats
	for _, t := range turns {
		switch t.Kind {
		case store.KindAnswer:
			s.Answered++
			s.TotalTime += t.TimeSpent
		case store.KindHint:
			s.HintsUsed++
		case store.KindSkip:
			s.Skipped++
		}
	}
	return s
}

func templateSummary(concept conceptgraph.Concept, s dialogueStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "During %q you worked through %d question%s",
		concept.Title, s.Answered, plural(s.Answered))
	if s.HintsUsed > 0 {
		fmt.Fprintf(&b, " and used %d hint%s", s.HintsUsed, plural(s.HintsUsed))
	}
	b.WriteString(".")
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " You skipped %d question%s; revisiting them would strengthen your understanding.",
			s.Skipped, plural(s.Skipped))
	}
	if s.Answered > 0 && s.TotalTime > 0 {
		fmt.Fprintf(&b, " You averaged %.0f seconds per answer.", s.TotalTime/float64(s.Answered))
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// reflectionOutput is the raw LLM response before mapping.
type reflectionOutput struct {
	Summary    string   `json:"summary"`
	FocusAreas []string `json:"focus_areas"`
}

func (g *Generator) generate(ctx context.Context, concept conceptgraph.Concept, turns []store.TurnRecord, stats dialogueStats) (string, []string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeReflection)

	req := llm.Request{
		System: "You are a Socratic tutor writing a short, encouraging reflection on a finished tutoring dialogue. Address the learner directly. Two to four sentences.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildReflectionPrompt(concept, turns, stats)},
		},
		Schema:      summarySchema,
		MaxTokens:   512,
		Temperature: 0.5,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var raw reflectionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return "", nil, fmt.Errorf("parse reflection response: %w", err)
	}
	if raw.Summary == "" {
		return "", nil, fmt.Errorf("reflection response missing summary")
	}
	return raw.Summary, raw.FocusAreas, nil
}

func buildReflectionPrompt(concept conceptgraph.Concept, turns []store.TurnRecord, stats dialogueStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s (class %d %s)\n", concept.Title, concept.ClassGrade, concept.Subject)
	fmt.Fprintf(&b, "Questions answered: %d, hints used: %d, skipped: %d\n\n",
		stats.Answered, stats.HintsUsed, stats.Skipped)
	b.WriteString("Dialogue:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Speaker, t.Text)
	}
	b.WriteString("\nWrite the reflection and list up to three focus areas the learner should revisit.")
	return b.String()
}

var summarySchema = &llm.Schema{
	Name:        "reflection-summary",
	Description: "A short reflection on a finished Socratic dialogue",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two to four sentences addressed to the learner",
			},
			"focus_areas": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 3,
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}
