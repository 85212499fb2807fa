package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

// reListPrefix strips bullet markers and the "3." / "3)" numbering models
// copy back from the prompt. Without this, the number would glue onto the
// normalized label and the field would never match.
var reListPrefix = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(?:\d{1,3}[.)]\s*)?`)

// ParseResponse turns raw model output into one value per schema field.
// The reply is tried as a JSON object first (after removing a markdown code
// fence), then as "Field: Value" lines. Labels match case-insensitively and
// ignore spacing and punctuation; matched values are stored verbatim apart
// from whitespace trimming. Every schema field gets an entry, empty when the
// reply had nothing for it; labels outside the schema are dropped.
func ParseResponse(text string, s *schema.ExtractionSchema) map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = ""
	}

	byLabel := parseJSONObject(stripFences(text))
	if byLabel == nil {
		byLabel = parseLines(text)
	}
	for _, f := range s.Fields {
		if v, ok := byLabel[schema.Normalize(f.Name)]; ok {
			out[f.Name] = strings.TrimSpace(v)
		}
	}
	return out
}

// parseJSONObject decodes a flat JSON object into normalized-label form.
// When the text does not decode as-is, the slice between the first "{" and
// the last "}" is tried once more, which recovers objects the model wrapped
// in prose. Non-string values are rendered as text so numeric answers still
// land in the cell. Returns nil when no JSON object can be found.
func parseJSONObject(text string) map[string]string {
	m := decodeObject(text)
	if m == nil {
		if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
			m = decodeObject(text[i : j+1])
		}
	}
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		key := schema.Normalize(k)
		switch t := v.(type) {
		case string:
			out[key] = t
		case nil:
			out[key] = ""
		case float64:
			out[key] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(t)
		default:
			out[key] = fmt.Sprintf("%v", t)
		}
	}
	return out
}

func decodeObject(text string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil
	}
	return m
}

// parseLines scans "Field: Value" pairs, one per line. Lines without a colon
// are ignored. A label repeated on a later line overwrites the earlier value.
func parseLines(text string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = reListPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := schema.Normalize(label)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// stripFences removes a wrapping markdown code block from model output.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
