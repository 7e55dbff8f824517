// Package socgen generates adaptive Socratic follow-up questions via
// the LLM collaborator. Generation is best-effort: the session engine
// falls back to the static seed question whenever a call fails, times
// out, or no provider is configured.
package socgen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/socratic/internal/llm"
)

// Input carries the session context an adaptive question is built from.
type Input struct {
	ConceptTitle string
	Subject      string
	ClassGrade   int

	// Seed is the static question at the current index. The generated
	// question must probe the same point, so the seed anchors the
	// prompt.
	Seed string

	// LastAnswer is the learner's most recent answer, if any.
	LastAnswer string

	// Asked lists question texts already posed this session, so the
	// collaborator does not repeat itself.
	Asked []string
}

// Question is a generated Socratic question.
type Question struct {
	Text     string
	Type     string
	Hint     string
	FollowUp string
}

// Generator produces Socratic questions from session context.
type Generator interface {
	Generate(ctx context.Context, input Input) (*Question, error)
}

// Config tunes LLM generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns generation defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 512, Temperature: 0.4}
}

// LLMGenerator implements Generator on an llm.Provider.
type LLMGenerator struct {
	provider llm.Provider
	cfg      Config
}

// New creates an LLMGenerator.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, cfg: cfg}
}

// questionOutput is the raw LLM response before mapping.
type questionOutput struct {
	Question string `json:"question"`
	Type     string `json:"type"`
	Hint     string `json:"hint"`
	FollowUp string `json:"follow_up"`
}

// Generate produces a single adaptive question for the given context.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) (*Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestion)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}

	var raw questionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("parse question response: %w", err)
	}
	if raw.Question == "" {
		return nil, fmt.Errorf("question response missing question text")
	}
	if raw.Type == "" {
		raw.Type = "elicitation"
	}

	return &Question{
		Text:     raw.Question,
		Type:     raw.Type,
		Hint:     raw.Hint,
		FollowUp: raw.FollowUp,
	}, nil
}
