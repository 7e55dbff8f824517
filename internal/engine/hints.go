package engine

import (
	"fmt"
	"strings"

	"github.com/abhisek/socratic/internal/conceptgraph"
)

// heuristicHint produces a nudge once the authored hint ladder for the
// question is exhausted. It is deterministic for a given question and
// last answer, so repeated requests return the same hint until the
// dialogue moves on.
func heuristicHint(concept conceptgraph.Concept, q conceptgraph.Question, lastAnswer string) string {
	lower := strings.ToLower(q.Text)
	switch {
	case strings.Contains(lower, "why"):
		return "Focus on the cause. What has to happen first for this to be true?"
	case strings.Contains(lower, "what "), strings.Contains(lower, "define"):
		return "Start from the definition. Say it in your own words, then apply it here."
	}
	if len(concept.Keywords) >= 2 {
		return fmt.Sprintf("Think about how %s and %s relate in this question.",
			concept.Keywords[0], concept.Keywords[1])
	}
	if strings.TrimSpace(lastAnswer) != "" {
		return "Look back at your last answer. Which part of it can you build on?"
	}
	return "Try breaking the question into smaller parts and tackle one at a time."
}
