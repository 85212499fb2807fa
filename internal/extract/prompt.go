package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

// BuildPrompt renders the instruction sent alongside the uploaded document:
// one numbered question per schema field, then the reply-format contract.
// The model is asked for a flat JSON object keyed by field name; ParseResponse
// still copes when it answers in "Field: Value" lines instead.
func BuildPrompt(s *schema.ExtractionSchema) string {
	var b strings.Builder
	b.WriteString("You are reviewing a research proposal submitted by an academic institution. ")
	b.WriteString("Answer the following questions using only the contents of the attached document.\n\n")
	for i, f := range s.Fields {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.Name, f.Prompt)
	}
	b.WriteString("\nReturn ONLY a flat JSON object whose keys are exactly the field names above ")
	b.WriteString("and whose values are strings. Use an empty string when the document does not answer a question. ")
	b.WriteString("Do not add markdown formatting, code fences, or explanations.")
	return b.String()
}
