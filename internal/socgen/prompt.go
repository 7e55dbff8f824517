package socgen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a Socratic tutor. You never state the answer outright.
You guide the learner toward it with one short, precise question at a
time. Questions must be answerable by a school student of the stated
class, must build on what the learner just said, and must stay on the
given concept.`

// subjectRules tailors question style per subject.
var subjectRules = map[string]string{
	"biology":     "Prefer questions about processes, structures and their functions. Ask the learner to name, locate or explain a mechanism.",
	"physics":     "Prefer questions that connect an everyday observation to the underlying law. Ask for predictions before explanations.",
	"chemistry":   "Prefer questions about what changes and what is conserved. Ask the learner to identify reactants, products or evidence of a reaction.",
	"mathematics": "Prefer questions that expose structure. Ask the learner to try a small concrete example before generalising.",
}

func buildUserMessage(input Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Concept: %s\nSubject: %s\nClass: %d\n",
		input.ConceptTitle, input.Subject, input.ClassGrade)

	if rule, ok := subjectRules[strings.ToLower(input.Subject)]; ok {
		fmt.Fprintf(&b, "Style: %s\n", rule)
	}

	fmt.Fprintf(&b, "\nThe next planned question is: %q\n", input.Seed)
	b.WriteString("Rephrase or adapt it so it follows naturally from the dialogue, while probing the same point.\n")

	if input.LastAnswer != "" {
		fmt.Fprintf(&b, "\nThe learner's latest answer was: %q\n", input.LastAnswer)
		b.WriteString("Acknowledge anything correct in it implicitly through your question. If it contains a misconception, steer the question toward exposing it.\n")
	}

	if len(input.Asked) > 0 {
		b.WriteString("\nQuestions already asked this session (do not repeat them):\n")
		for _, q := range input.Asked {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	b.WriteString("\nReturn a single question.")
	return b.String()
}
