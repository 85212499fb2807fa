package batch

import "github.com/joseph-ayodele/proposal-extractor/constants"

// RowOutcome records what happened to one register row.
type RowOutcome struct {
	Row         int
	TPN         string
	Status      constants.RowStatus
	Reason      string // populated for skips and failures
	Path        string // resolved PDF, when one was found
	NeedsReview bool
}

// Summary aggregates a completed run.
type Summary struct {
	Total    int
	Written  int
	Skipped  int
	Failed   int
	Reviews  int
	Outcomes []RowOutcome
}

func (s *Summary) add(o RowOutcome) {
	s.Total++
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case constants.RowStatusWritten:
		s.Written++
	case constants.RowStatusSkipped:
		s.Skipped++
	case constants.RowStatusFailed:
		s.Failed++
	}
	if o.NeedsReview {
		s.Reviews++
	}
}

// Problems returns the outcomes an operator should look at: skips, failures
// and rows flagged for review.
func (s *Summary) Problems() []RowOutcome {
	var out []RowOutcome
	for _, o := range s.Outcomes {
		if o.Status == constants.RowStatusSkipped || o.Status == constants.RowStatusFailed || o.NeedsReview {
			out = append(out, o)
		}
	}
	return out
}
