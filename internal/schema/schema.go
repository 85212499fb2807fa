// Package schema defines the ordered field list an extraction run fills in.
// Field order is load-bearing: the first field lands in the first output
// column of the register and so on.
package schema

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
)

// Field is one value to extract from a proposal document. Name is the stable
// key used in the prompt and matched against the model's reply; Prompt is the
// question put to the model.
type Field struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// ExtractionSchema is the ordered list of fields written to the register's
// output columns.
type ExtractionSchema struct {
	Fields []Field `yaml:"fields"`
}

// Load reads a schema from a YAML file and validates it.
func Load(path string) (*ExtractionSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "read schema file", err)
	}
	var s ExtractionSchema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "parse schema file", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *ExtractionSchema) Len() int { return len(s.Fields) }

// Names returns the field names in column order.
func (s *ExtractionSchema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// OutputColumns returns the column names the schema covers, starting at the
// register's first output column.
func (s *ExtractionSchema) OutputColumns() []string {
	cols := make([]string, len(s.Fields))
	for i := range s.Fields {
		name, _ := excelize.ColumnNumberToName(constants.FirstOutputCol + i)
		cols[i] = name
	}
	return cols
}

// Validate checks that the schema is non-empty, fits the output column span,
// and has no blank or duplicate field names (compared after Normalize, since
// parsing matches on normalized labels).
func (s *ExtractionSchema) Validate() error {
	if len(s.Fields) == 0 {
		return common.NewAppError("SCHEMA_ERROR", "schema has no fields", common.ErrInvalidInput)
	}
	if len(s.Fields) > constants.OutputColumnCount {
		return common.NewAppError("SCHEMA_ERROR",
			fmt.Sprintf("schema has %d fields but the register holds %d output columns",
				len(s.Fields), constants.OutputColumnCount),
			common.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return common.NewAppError("SCHEMA_ERROR",
				fmt.Sprintf("field %d has no name", i+1), common.ErrInvalidInput)
		}
		key := Normalize(name)
		if _, ok := seen[key]; ok {
			return common.NewAppError("SCHEMA_ERROR",
				fmt.Sprintf("duplicate field name %q", name), common.ErrInvalidInput)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Normalize canonicalizes a field label for matching: lowercased with
// everything but letters and digits removed, so "Project Title" and
// "project_title" compare equal.
func Normalize(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Default returns the built-in proposal evaluation schema. Its seventeen
// fields line up with output columns L through AB of the register.
func Default() *ExtractionSchema {
	return &ExtractionSchema{Fields: []Field{
		{Name: "CentralGovtFunded", Prompt: "Is the institution funded by the central government? Answer Yes or No."},
		{Name: "StateGovtFunded", Prompt: "Is the institution funded by a state government? Answer Yes or No."},
		{Name: "OtherFunding", Prompt: "Does the institution have any other funding source? Name it, otherwise answer No."},
		{Name: "InstitutionOfEminence", Prompt: "Is the institution designated an Institution of Eminence? Answer Yes or No."},
		{Name: "NIRFRank", Prompt: "State the institution's latest NIRF ranking. Leave blank if not mentioned."},
		{Name: "QSAsiaRank", Prompt: "State the institution's QS Asia ranking. Leave blank if not mentioned."},
		{Name: "NBAAccredited", Prompt: "Is the institution NBA accredited? Answer Yes or No."},
		{Name: "NAACScore", Prompt: "State the institution's NAAC score. Leave blank if not mentioned."},
		{Name: "AutonomousStatus", Prompt: "Does the institution hold autonomous status? Answer Yes or No."},
		{Name: "AdmissionAbove80Pct", Prompt: "Are the admission criteria above 80 percent? Answer Yes or No."},
		{Name: "QuantumFaculty", Prompt: "Are at least two faculty members working in quantum technology? Answer Yes or No."},
		{Name: "LabSpace", Prompt: "Is at least 2000 sq ft of laboratory space committed for the lab? Answer Yes or No."},
		{Name: "LabTechnician", Prompt: "Is a full-time laboratory technician committed? Answer Yes or No."},
		{Name: "SenateApproval", Prompt: "Has the senate or syndicate approved the proposal? Answer Yes or No."},
		{Name: "OperationalCommitment", Prompt: "Is there a written commitment to cover operational expenses? Answer Yes or No."},
		{Name: "SenateApprovalEvidence", Prompt: "State the page number where the senate or syndicate approval appears."},
		{Name: "CommitmentEvidence", Prompt: "State the page number of the written commitment and add a short comment."},
	}}
}
