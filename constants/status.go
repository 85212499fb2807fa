package constants

// RowStatus is the canonical processing state for one register row.
type RowStatus string

// Stable values (these exact strings appear in logs and summaries).
const (
	RowStatusPending   RowStatus = "PENDING"   // not yet touched
	RowStatusResolved  RowStatus = "RESOLVED"  // identifier matched to a PDF
	RowStatusExtracted RowStatus = "EXTRACTED" // model response parsed
	RowStatusWritten   RowStatus = "WRITTEN"   // output columns filled
	RowStatusSkipped   RowStatus = "SKIPPED"   // blank identifier, no file, or already filled
	RowStatusFailed    RowStatus = "FAILED"    // terminal failure for this row
)
