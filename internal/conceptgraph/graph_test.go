package conceptgraph

import (
	"errors"
	"strings"
	"testing"
)

const testSeed = `[
  {
    "class": 10,
    "subject": "Biology",
    "title": "Photosynthesis",
    "keywords": ["chlorophyll", "sunlight"],
    "related": ["Respiration in Plants"],
    "questions": [
      {"question": "What do plants need to make food?", "type": "elicitation", "hints": ["Think about sunlight.", "What about water?"]},
      {"question": "Why are leaves green?", "hints": ["Think about pigments."]}
    ]
  },
  {
    "class": 9,
    "subject": "Mathematics",
    "title": "Polynomials",
    "prerequisites": ["Linear Equations"],
    "questions": [
      {"question": "What is a polynomial?"}
    ]
  }
]`

func TestLoad_ResolveExact(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := g.Resolve(10, "Biology", "Photosynthesis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != "Photosynthesis" {
		t.Errorf("got title %q, want %q", c.Title, "Photosynthesis")
	}
	if len(c.Questions) != 2 {
		t.Errorf("got %d questions, want 2", len(c.Questions))
	}
}

func TestLoad_ResolveCaseInsensitive(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := g.Resolve(10, "biology", "PHOTOSYNTHESIS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != "Photosynthesis" {
		t.Errorf("got title %q, want %q", c.Title, "Photosynthesis")
	}
}

func TestResolve_NotFound(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = g.Resolve(10, "Biology", "Osmosis")
	if err == nil {
		t.Fatal("expected error for unknown concept, got nil")
	}
	var nf *ErrConceptNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("got %T, want *ErrConceptNotFound", err)
	}
	if nf.Title != "Osmosis" {
		t.Errorf("got title %q in error, want %q", nf.Title, "Osmosis")
	}
}

func TestLoad_DefaultsQuestionType(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := g.Resolve(10, "Biology", "Photosynthesis")
	if got := c.Questions[1].Type; got != "elicitation" {
		t.Errorf("got type %q, want %q", got, "elicitation")
	}
}

func TestRelatedConcepts_LegacyPrerequisites(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := g.Resolve(9, "Mathematics", "Polynomials")
	related := c.RelatedConcepts()
	if len(related) != 1 || related[0] != "Linear Equations" {
		t.Errorf("got related %v, want [Linear Equations]", related)
	}
}

func TestList_FiltersByClassAndSubject(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := g.List(10, "biology")
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].Title != "Photosynthesis" {
		t.Errorf("got title %q, want %q", refs[0].Title, "Photosynthesis")
	}
	if refs[0].ClassGrade != 10 || refs[0].Subject != "Biology" {
		t.Errorf("got class %d subject %q, want 10 Biology", refs[0].ClassGrade, refs[0].Subject)
	}
	if g.List(11, "Biology") != nil {
		t.Error("expected no refs for class 11")
	}
}

func TestListAll_SeedOrder(t *testing.T) {
	g, err := Load([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := g.ListAll()
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].Title != "Photosynthesis" || refs[1].Title != "Polynomials" {
		t.Errorf("got order %q, %q; want seed order", refs[0].Title, refs[1].Title)
	}
}

func TestLoad_RejectsInvalidSeeds(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want string
	}{
		{
			name: "missing title",
			seed: `[{"class": 10, "subject": "Biology", "title": "", "questions": []}]`,
			want: "title",
		},
		{
			name: "missing subject",
			seed: `[{"class": 10, "subject": "", "title": "X", "questions": []}]`,
			want: "subject",
		},
		{
			name: "invalid class",
			seed: `[{"class": 0, "subject": "Biology", "title": "X", "questions": []}]`,
			want: "class",
		},
		{
			name: "duplicate concept",
			seed: `[{"class": 10, "subject": "Biology", "title": "X", "questions": []},
			        {"class": 10, "subject": "biology", "title": "x", "questions": []}]`,
			want: "duplicate",
		},
		{
			name: "empty question text",
			seed: `[{"class": 10, "subject": "Biology", "title": "X", "questions": [{"question": ""}]}]`,
			want: "question",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.seed))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadDefault_EmbeddedSeed(t *testing.T) {
	g, err := LoadDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() == 0 {
		t.Fatal("embedded seed produced an empty graph")
	}
	c, err := g.Resolve(10, "Biology", "Photosynthesis")
	if err != nil {
		t.Fatalf("embedded seed missing Photosynthesis: %v", err)
	}
	if len(c.Questions) == 0 {
		t.Error("Photosynthesis has no questions")
	}
}
