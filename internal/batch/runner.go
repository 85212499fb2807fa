// Package batch drives one extraction run end to end: scan the proposals
// directory, walk the register rows, extract fields for each resolvable row
// and persist the workbook once at the end.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/extract"
	"github.com/joseph-ayodele/proposal-extractor/internal/proposals"
	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
	"github.com/joseph-ayodele/proposal-extractor/internal/workbook"
)

// DocumentExtractor extracts schema fields from one PDF.
type DocumentExtractor interface {
	ExtractFromPDF(ctx context.Context, path string, s *schema.ExtractionSchema) (extract.ExtractionResult, error)
}

// Runner processes every register row sequentially. Rows never abort the run;
// only setup failures or context cancellation do, and in both cases the
// workbook is left untouched on disk.
type Runner struct {
	cfg       common.BatchConfig
	schema    *schema.ExtractionSchema
	extractor DocumentExtractor
	log       *slog.Logger
	onRow     func(RowOutcome)
}

func NewRunner(cfg common.BatchConfig, s *schema.ExtractionSchema, ex DocumentExtractor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, schema: s, extractor: ex, log: logger}
}

// OnRow registers a hook invoked after each row completes, before the next
// row starts. The CLI uses it to advance its progress bar.
func (r *Runner) OnRow(fn func(RowOutcome)) { r.onRow = fn }

// Run executes the batch. The returned Summary covers every row of the
// register; the error is non-nil only when the run aborted before or during
// processing, in which case no output file was written.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	rid := uuid.NewString()
	ctx = common.WithRunID(ctx, rid)
	log := r.log.With("run_id", rid)

	if err := r.schema.Validate(); err != nil {
		return nil, err
	}

	log.Info("batch.run.start",
		"input", r.cfg.InputPath,
		"proposals_dir", r.cfg.ProposalsDir,
		"fields", r.schema.Len(),
		"reprocess", r.cfg.Reprocess,
	)

	idx, err := proposals.Scan(r.cfg.ProposalsDir, log)
	if err != nil {
		return nil, err
	}

	wb, err := workbook.Open(r.cfg.InputPath, r.cfg.SheetName, r.cfg.TPNHeader, r.cfg.HeaderRow, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil {
			log.Warn("batch.workbook.close_failed", "error", cerr)
		}
	}()

	rows, err := wb.Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: read register rows: %w", common.ErrFatalSetup, err)
	}

	summary := &Summary{}
	for _, row := range rows {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run aborted at row %d: %w", row.Number, ctx.Err())
		}
		o := r.processRow(ctx, wb, idx, row)
		summary.add(o)
		log.Info("batch.row.done",
			"row", o.Row,
			"tpn", o.TPN,
			"status", string(o.Status),
			"reason", o.Reason,
		)
		if r.onRow != nil {
			r.onRow(o)
		}
	}

	out := r.cfg.OutputPath
	if out == "" {
		out = r.cfg.InputPath
	}
	if err := wb.SaveAs(out); err != nil {
		return nil, err
	}

	log.Info("batch.run.ok",
		"total", summary.Total,
		"written", summary.Written,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"reviews", summary.Reviews,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

func (r *Runner) processRow(ctx context.Context, wb *workbook.Workbook, idx *proposals.Index, row workbook.Row) RowOutcome {
	o := RowOutcome{Row: row.Number, TPN: row.TPN, Status: constants.RowStatusPending}

	if row.TPN == "" {
		o.Status = constants.RowStatusSkipped
		o.Reason = "blank tpn"
		return o
	}

	if !r.cfg.Reprocess {
		filled, err := wb.RowFilled(row.Number, r.schema.Len())
		if err != nil {
			o.Status = constants.RowStatusFailed
			o.Reason = err.Error()
			return o
		}
		if filled {
			o.Status = constants.RowStatusSkipped
			o.Reason = "already filled"
			return o
		}
	}

	path, ambiguous, err := idx.Resolve(row.TPN)
	if err != nil {
		// Resolve only fails with a row-skip sentinel, but keep the check so
		// an unexpected error still surfaces as a failure rather than a skip.
		if errors.Is(err, common.ErrRowSkip) {
			o.Status = constants.RowStatusSkipped
		} else {
			o.Status = constants.RowStatusFailed
		}
		o.Reason = err.Error()
		return o
	}
	o.Path = path
	o.Status = constants.RowStatusResolved
	if ambiguous {
		o.Reason = fmt.Sprintf("ambiguous match, picked %s", filepath.Base(path))
		r.log.Warn("batch.row.ambiguous", "row", row.Number, "tpn", row.TPN, "picked", path)
	}

	res, err := r.extractor.ExtractFromPDF(ctx, path, r.schema)
	if err != nil {
		o.Status = constants.RowStatusFailed
		o.Reason = err.Error()
		return o
	}
	o.Status = constants.RowStatusExtracted
	o.NeedsReview = res.NeedsReview

	if err := wb.WriteRow(row.Number, r.schema, res.Values); err != nil {
		o.Status = constants.RowStatusFailed
		o.Reason = err.Error()
		return o
	}
	o.Status = constants.RowStatusWritten
	return o
}
