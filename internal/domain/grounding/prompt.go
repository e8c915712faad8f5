// Package grounding formats retrieved chunks into a citation-annotated context,
// builds the constrained generation prompt and classifies out-of-context replies.
package grounding

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
)

// CanonicalRefusal is the single refusal text returned whenever the corpus cannot
// answer a question. Pattern checks and the front end compare against it verbatim.
const CanonicalRefusal = "I'm sorry, but I can only provide information based on the " +
	"health-related documents in my knowledge base. Please ask a question related to " +
	"healthcare, and I'd be happy to assist!"

// DefaultMinContextChars is the shortest context worth sending to the generator.
const DefaultMinContextChars = 50

// IsRefusal reports whether answer carries the canonical refusal.
func IsRefusal(answer string) bool {
	return strings.Contains(answer, CanonicalRefusal)
}

// Citation returns the inline citation for c: "[title, year]", or "[title]" without a year.
func Citation(c *chunk.Chunk) string {
	if c.DocYear == nil {
		return "[" + c.DocTitle + "]"
	}
	return "[" + c.DocTitle + ", " + strconv.Itoa(*c.DocYear) + "]"
}

// FormatContext concatenates chunk texts, each followed by its citation and a newline.
func FormatContext(chunks []chunk.Chunk) string {
	var b strings.Builder
	for i := range chunks {
		b.WriteString(chunks[i].Text)
		b.WriteByte(' ')
		b.WriteString(Citation(&chunks[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

// Assembler builds generation prompts from retrieved chunks.
type Assembler struct {
	minContextChars int
}

// NewAssembler creates an Assembler. minContextChars <= 0 selects DefaultMinContextChars.
func NewAssembler(minContextChars int) *Assembler {
	if minContextChars <= 0 {
		minContextChars = DefaultMinContextChars
	}
	return &Assembler{minContextChars: minContextChars}
}

// Assemble returns the prompt for query, or CanonicalRefusal with skip=true when
// the context is too thin to attempt an answer.
func (a *Assembler) Assemble(chunks []chunk.Chunk, query string) (prompt string, skip bool) {
	contextText := strings.TrimSpace(FormatContext(chunks))
	if len(contextText) < a.minContextChars {
		return CanonicalRefusal, true
	}

	var b strings.Builder
	b.WriteString("SYSTEM: You are a healthcare assistant that ONLY answers questions using the provided context. ")
	b.WriteString("CRITICAL RULE: If the question cannot be answered from the provided context, ")
	b.WriteString("you MUST respond with EXACTLY this message and nothing else:\n")
	b.WriteString("'" + CanonicalRefusal + "'\n")
	b.WriteString("Do not add any explanations, citations, or additional information. ")
	b.WriteString("Do not provide any sources or references.\n\n")
	b.WriteString("If the question CAN be answered from the context, provide a detailed answer with inline citations.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(FormatContext(chunks))
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String(), false
}
