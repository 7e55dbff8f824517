package conceptgraph

// Question is one step of a concept's Socratic sequence.
type Question struct {
	// Text is the question prompt shown to the learner.
	Text string `json:"question"`

	// Type classifies the question ("elicitation", "probing", ...).
	// Defaults to "elicitation" when the seed omits it.
	Type string `json:"type"`

	// Hints is the ordered hint ladder, least to most revealing.
	Hints []string `json:"hints"`

	// Difficulty is a 1-5 self-assessed difficulty. Informational only.
	Difficulty int `json:"difficulty"`
}

// Concept is a topic unit: an ordered question sequence plus links to
// related concepts. Immutable after load.
type Concept struct {
	// ClassGrade is the school class this concept belongs to (e.g. 10).
	ClassGrade int `json:"class"`

	// Subject is the subject area (Biology, Physics, ...).
	Subject string `json:"subject"`

	// Title identifies the concept within (class, subject).
	Title string `json:"title"`

	// Keywords are concept-level terms used for context-aware hints.
	Keywords []string `json:"keywords"`

	// Related lists titles of related/next concepts in suggestion order.
	Related []string `json:"related"`

	// Prerequisites is accepted as a legacy alias for Related; older
	// seed files used it for the same purpose.
	Prerequisites []string `json:"prerequisites"`

	// Questions is the ordered Socratic question sequence.
	Questions []Question `json:"questions"`
}

// RelatedConcepts returns the concept's declared related titles in
// order, falling back to the legacy prerequisites field.
func (c *Concept) RelatedConcepts() []string {
	if len(c.Related) > 0 {
		return c.Related
	}
	return c.Prerequisites
}

// ConceptRef is a lightweight listing entry for a concept.
type ConceptRef struct {
	ID         string `json:"id"`
	ClassGrade int    `json:"class"`
	Subject    string `json:"subject"`
	Title      string `json:"title"`
}
