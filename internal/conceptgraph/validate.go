package conceptgraph

import (
	"fmt"
	"strings"
)

// validateConcepts performs structural checks on the seed set.
// Returns a combined error describing all problems found, or nil.
// Dangling related-concept titles are allowed: suggestions simply
// point at material the seed does not cover yet.
func validateConcepts(concepts []Concept) error {
	var errs []string

	keySet := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if strings.TrimSpace(c.Title) == "" {
			errs = append(errs, "concept with empty title")
			continue
		}
		if strings.TrimSpace(c.Subject) == "" {
			errs = append(errs, fmt.Sprintf("concept %q has empty subject", c.Title))
		}
		if c.ClassGrade <= 0 {
			errs = append(errs, fmt.Sprintf("concept %q has invalid class %d", c.Title, c.ClassGrade))
		}

		key := conceptKey(c.ClassGrade, c.Subject, c.Title)
		if keySet[key] {
			errs = append(errs, fmt.Sprintf("duplicate concept: class %d, subject %q, title %q",
				c.ClassGrade, c.Subject, c.Title))
		}
		keySet[key] = true

		for i, q := range c.Questions {
			if strings.TrimSpace(q.Text) == "" {
				errs = append(errs, fmt.Sprintf("concept %q question %d has empty text", c.Title, i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid concept seed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
