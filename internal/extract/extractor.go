// Package extract turns one PDF proposal into field values: upload the
// document to the inference service, prompt the model once, parse whatever
// comes back. Both network calls run under the caller's retry policy.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/gemini"
	"github.com/joseph-ayodele/proposal-extractor/internal/retry"
	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

type Extractor struct {
	svc    Service
	policy retry.Policy
	log    *slog.Logger
}

func NewExtractor(svc Service, policy retry.Policy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{svc: svc, policy: policy, log: logger}
}

// ExtractFromPDF runs the upload, generate, parse sequence for one document.
// Upload and generate each get the full retry budget; the uploaded file is
// deleted best-effort afterwards. Errors from either network call come back
// wrapped in common.ErrServiceFailure so the runner can record the row and
// move on. The function never touches the register.
func (e *Extractor) ExtractFromPDF(ctx context.Context, path string, s *schema.ExtractionSchema) (ExtractionResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	if err := s.Validate(); err != nil {
		return ExtractionResult{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return ExtractionResult{}, common.NewAppError("EXTRACT_ERROR", "document not readable", err)
	}
	if st.IsDir() {
		return ExtractionResult{}, common.NewAppError("EXTRACT_ERROR", "document path is a directory", common.ErrInvalidInput)
	}

	e.log.Info("extract.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"path", path,
		"fields", s.Len(),
	)

	attempts := 0

	var file gemini.FileHandle
	err = e.policy.Do(ctx, "upload", func() error {
		attempts++
		var uerr error
		file, uerr = e.svc.Upload(ctx, path)
		return uerr
	})
	if err != nil {
		e.log.Error("extract.upload_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ExtractionResult{}, fmt.Errorf("%w: upload %s: %w", common.ErrServiceFailure, filepath.Base(path), err)
	}
	defer func() {
		if derr := e.svc.DeleteFile(ctx, file); derr != nil {
			e.log.Warn("extract.cleanup_failed", "req_id", rid, "file", file.Name, "error", derr)
		}
	}()

	prompt := BuildPrompt(s)
	var text string
	err = e.policy.Do(ctx, "generate", func() error {
		attempts++
		var gerr error
		text, gerr = e.svc.Generate(ctx, file, prompt)
		return gerr
	})
	if err != nil {
		e.log.Error("extract.generate_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ExtractionResult{}, fmt.Errorf("%w: generate for %s: %w", common.ErrServiceFailure, filepath.Base(path), err)
	}

	values := ParseResponse(text, s)
	empty := 0
	for _, f := range s.Fields {
		if values[f.Name] == "" {
			empty++
			e.log.Debug("extract.field_missing", "req_id", rid, "field", f.Name)
		}
	}

	result := ExtractionResult{Values: values, Attempts: attempts, Elapsed: time.Since(start)}
	if verr := ValidateJSONAgainstSchema(BuildResultJSONSchema(s), []byte(stripFences(text))); verr != nil {
		result.NeedsReview = true
		e.log.Warn("extract.validate_failed", "req_id", rid, "error", verr)
	}

	e.log.Info("extract.ok",
		"req_id", rid,
		"fields", s.Len(),
		"empty", empty,
		"attempts", result.Attempts,
		"needs_review", result.NeedsReview,
		"elapsed_ms", result.Elapsed.Milliseconds(),
	)
	return result, nil
}
