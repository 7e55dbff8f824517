package socgen

import "github.com/abhisek/socratic/internal/llm"

// QuestionSchema constrains generation output to a single structured
// Socratic question.
var QuestionSchema = &llm.Schema{
	Name:        "socratic-question",
	Description: "A single Socratic question adapted to the dialogue so far",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The Socratic question to pose next, one or two sentences",
			},
			"type": map[string]any{
				"type": "string",
				"enum": []any{"elicitation", "probe", "synthesis"},
			},
			"hint": map[string]any{
				"type":        "string",
				"description": "A short nudge to offer if the learner is stuck",
			},
			"follow_up": map[string]any{
				"type":        "string",
				"description": "A deeper question to hold in reserve",
			},
		},
		"required":             []any{"question", "type"},
		"additionalProperties": false,
	},
}
