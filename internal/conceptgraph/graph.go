// Package conceptgraph loads the static concept seed and exposes
// read-only lookup over it. The graph is built once at startup and
// never mutated, so concurrent reads need no locking.
package conceptgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Graph holds the concept set with precomputed lookup indices.
type Graph struct {
	concepts []Concept
	byKey    map[string]*Concept
}

// Load parses and validates seed JSON and builds the graph.
func Load(data []byte) (*Graph, error) {
	var concepts []Concept
	if err := json.Unmarshal(data, &concepts); err != nil {
		return nil, fmt.Errorf("parse concept seed: %w", err)
	}
	return build(concepts)
}

// build constructs the graph from a concept slice, normalizing
// defaults and indexing by (class, subject, title).
func build(concepts []Concept) (*Graph, error) {
	if err := validateConcepts(concepts); err != nil {
		return nil, err
	}

	g := &Graph{
		concepts: concepts,
		byKey:    make(map[string]*Concept, len(concepts)),
	}
	for i := range g.concepts {
		c := &g.concepts[i]
		for qi := range c.Questions {
			if c.Questions[qi].Type == "" {
				c.Questions[qi].Type = "elicitation"
			}
		}
		g.byKey[conceptKey(c.ClassGrade, c.Subject, c.Title)] = c
	}
	return g, nil
}

// conceptKey builds the case-insensitive lookup key.
func conceptKey(classGrade int, subject, title string) string {
	return fmt.Sprintf("%d|%s|%s",
		classGrade,
		strings.ToLower(strings.TrimSpace(subject)),
		strings.ToLower(strings.TrimSpace(title)),
	)
}

// Resolve returns the concept for (class, subject, title). Subject and
// title matching is case-insensitive. Returns ErrConceptNotFound when
// no concept matches.
func (g *Graph) Resolve(classGrade int, subject, title string) (*Concept, error) {
	c, ok := g.byKey[conceptKey(classGrade, subject, title)]
	if !ok {
		return nil, &ErrConceptNotFound{ClassGrade: classGrade, Subject: subject, Title: title}
	}
	return c, nil
}

// List returns listing entries for every concept in (class, subject),
// in seed declaration order.
func (g *Graph) List(classGrade int, subject string) []ConceptRef {
	var refs []ConceptRef
	for i := range g.concepts {
		c := &g.concepts[i]
		if c.ClassGrade != classGrade {
			continue
		}
		if !strings.EqualFold(c.Subject, subject) {
			continue
		}
		refs = append(refs, ref(c))
	}
	return refs
}

// ListAll returns listing entries for every concept in seed order.
func (g *Graph) ListAll() []ConceptRef {
	refs := make([]ConceptRef, 0, len(g.concepts))
	for i := range g.concepts {
		refs = append(refs, ref(&g.concepts[i]))
	}
	return refs
}

func ref(c *Concept) ConceptRef {
	return ConceptRef{
		ID:         conceptKey(c.ClassGrade, c.Subject, c.Title),
		ClassGrade: c.ClassGrade,
		Subject:    c.Subject,
		Title:      c.Title,
	}
}

// Len returns the number of concepts in the graph.
func (g *Graph) Len() int {
	return len(g.concepts)
}

// ErrConceptNotFound reports a failed concept lookup.
type ErrConceptNotFound struct {
	ClassGrade int
	Subject    string
	Title      string
}

func (e *ErrConceptNotFound) Error() string {
	return fmt.Sprintf("concept not found: class %d, subject %q, title %q",
		e.ClassGrade, e.Subject, e.Title)
}
