package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/batch"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/extract"
	"github.com/joseph-ayodele/proposal-extractor/internal/gemini"
	"github.com/joseph-ayodele/proposal-extractor/internal/retry"
	"github.com/joseph-ayodele/proposal-extractor/internal/schema"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func main() {
	// Parse CLI flags
	var (
		input      = flag.String("input", "", "register XLSX file")
		out        = flag.String("out", "", "output XLSX path (optional, defaults to overwriting the input)")
		dir        = flag.String("dir", "", "directory containing proposal PDFs")
		sheet      = flag.String("sheet", "", "sheet name (optional, defaults to the active sheet)")
		schemaPath = flag.String("schema", "", "YAML field schema (optional, defaults to the built-in schema)")
		configPath = flag.String("config", "", "YAML config file (optional)")
		reprocess  = flag.Bool("reprocess", false, "re-extract rows whose output columns are already filled")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	// Setup logger. Logs go to stderr; stdout carries the progress bar and
	// the closing summary.
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration, then let flags override file and environment
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Batch.InputPath = *input
	}
	if *out != "" {
		cfg.Batch.OutputPath = *out
	}
	if *dir != "" {
		cfg.Batch.ProposalsDir = *dir
	}
	if *sheet != "" {
		cfg.Batch.SheetName = *sheet
	}
	if *schemaPath != "" {
		cfg.Batch.SchemaPath = *schemaPath
	}
	if *reprocess {
		cfg.Batch.Reprocess = true
	}

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// Field schema: built-in unless a YAML schema was given
	s := schema.Default()
	if cfg.Batch.SchemaPath != "" {
		s, err = schema.Load(cfg.Batch.SchemaPath)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Gemini.Timeout.Std(),
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
	}, logger)

	policy := retry.Policy{
		MaxRetries:  cfg.Retry.MaxRetries,
		BaseBackoff: cfg.Retry.BaseBackoff.Std(),
		MaxBackoff:  cfg.Retry.MaxBackoff.Std(),
		Jitter:      cfg.Retry.Jitter,
		Logger:      logger,
	}

	extractor := extract.NewExtractor(client, policy, logger)
	runner := batch.NewRunner(cfg.Batch, s, extractor, logger)

	// Row count is unknown until the register is open, so run in
	// indeterminate mode and count rows as they complete.
	bar := getProgressBar(-1, "Extracting proposal fields...")
	runner.OnRow(func(o batch.RowOutcome) {
		bar.Add(1)
	})

	color.Blue("\nStarting proposal extraction for %s\n", cfg.Batch.InputPath)

	summary, err := runner.Run(context.Background())
	bar.Finish()
	if err != nil {
		printError("\nError: %v\n", err)
		os.Exit(1)
	}

	outPath := cfg.Batch.OutputPath
	if outPath == "" {
		outPath = cfg.Batch.InputPath
	}

	color.Green("\n✓ Batch complete\n")
	fmt.Printf("Proposal extraction complete!\n")
	fmt.Printf("- Rows total: %d\n", summary.Total)
	fmt.Printf("- Rows written: %d\n", summary.Written)
	fmt.Printf("- Rows skipped: %d\n", summary.Skipped)
	fmt.Printf("- Rows failed: %d\n", summary.Failed)
	fmt.Printf("- Needs review: %d\n", summary.Reviews)
	fmt.Printf("- Output: %s\n", outPath)

	if problems := summary.Problems(); len(problems) > 0 {
		warn := color.New(color.FgYellow).PrintfFunc()
		fail := color.New(color.FgRed).PrintfFunc()
		fmt.Printf("\nRows needing attention:\n")
		for _, p := range problems {
			reason := p.Reason
			if reason == "" && p.NeedsReview {
				reason = "model reply was not strict JSON"
			}
			if p.Status == constants.RowStatusFailed {
				fail("- row %d (tpn %s) %s: %s\n", p.Row, p.TPN, p.Status, reason)
			} else {
				warn("- row %d (tpn %s) %s: %s\n", p.Row, p.TPN, p.Status, reason)
			}
		}
	}
}
