package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/proposal-extractor/internal/gemini"
)

// Service is the inference capability the extractor depends on: upload a
// document, generate text against it, delete it when done.
type Service interface {
	Upload(ctx context.Context, path string) (gemini.FileHandle, error)
	Generate(ctx context.Context, file gemini.FileHandle, prompt string) (string, error)
	DeleteFile(ctx context.Context, file gemini.FileHandle) error
}

// ExtractionResult holds one document's extracted values plus metadata for
// the run summary. Values has an entry for every schema field; a field the
// model did not answer maps to the empty string.
type ExtractionResult struct {
	Values      map[string]string
	NeedsReview bool          // model reply did not validate against the result schema
	Attempts    int           // service calls made across upload and generate
	Elapsed     time.Duration // wall time for the whole document
}
