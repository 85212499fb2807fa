// Package proposals resolves row identifiers to PDF files. One recursive
// scan of the proposals directory builds a TPN index up front; per-row
// resolution is then a map lookup with a deterministic tie-break.
package proposals

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
)

// reFilenameTPN captures the identifier token from the
// "<ProposalID>_<tpn>_finalproposal.pdf" naming convention.
var reFilenameTPN = regexp.MustCompile(`(?i)_([0-9]+)_finalproposal\.pdf$`)

// ScanStats aggregates one directory scan.
type ScanStats struct {
	Scanned uint32 // directory entries visited
	Matched uint32 // PDF files found
	Indexed uint32 // PDFs whose filename carried a TPN token
	Failed  uint32 // entries the walk could not read
}

// Index maps TPN tokens to the PDF files that carry them.
type Index struct {
	root  string
	byTPN map[string][]string
	files []string // every matched PDF, sorted
	stats ScanStats
	log   *slog.Logger
}

// Scan walks root once and builds the index. Unreadable entries are counted
// and skipped; only an unusable root fails the scan. Hidden files and
// directories are ignored.
func Scan(root string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: proposals directory is required", common.ErrFatalSetup)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: proposals directory %s: %w", common.ErrFatalSetup, root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", common.ErrFatalSetup, root)
	}

	idx := &Index{root: root, byTPN: map[string][]string{}, log: logger}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		idx.stats.Scanned++
		if walkErr != nil {
			idx.stats.Failed++
			logger.Warn("proposals.scan.entry_error", "path", path, "error", walkErr)
			return nil // continue walking
		}
		if path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		idx.stats.Matched++
		idx.files = append(idx.files, path)
		if m := reFilenameTPN.FindStringSubmatch(filepath.Base(path)); m != nil {
			idx.byTPN[m[1]] = append(idx.byTPN[m[1]], path)
			idx.stats.Indexed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(idx.files)
	for _, paths := range idx.byTPN {
		sort.Strings(paths)
	}

	logger.Info("proposals.scan.ok",
		"root", root,
		"scanned", idx.stats.Scanned,
		"matched", idx.stats.Matched,
		"indexed", idx.stats.Indexed,
		"failed", idx.stats.Failed,
	)
	return idx, nil
}

// Resolve returns the PDF for a TPN. A token match from the filename
// convention wins; when the convention does not hit, any filename containing
// the TPN or any file inside a directory named after it is accepted. With
// several candidates the lexicographically first is chosen, so reruns always
// pick the same file; ambiguous reports that more than one matched.
func (x *Index) Resolve(tpn string) (path string, ambiguous bool, err error) {
	if tpn == "" {
		return "", false, fmt.Errorf("%w: blank tpn", common.ErrRowSkip)
	}
	matches := x.byTPN[tpn]
	if len(matches) == 0 {
		matches = x.substringMatches(tpn)
	}
	if len(matches) == 0 {
		return "", false, fmt.Errorf("%w: file not found for tpn %s", common.ErrRowSkip, tpn)
	}
	return matches[0], len(matches) > 1, nil
}

func (x *Index) substringMatches(tpn string) []string {
	var out []string
	for _, p := range x.files {
		if strings.Contains(filepath.Base(p), tpn) || filepath.Base(filepath.Dir(p)) == tpn {
			out = append(out, p)
		}
	}
	return out // x.files is already sorted
}

// Stats returns the aggregates from the scan that built the index.
func (x *Index) Stats() ScanStats { return x.stats }

// Len returns the number of PDFs the index covers.
func (x *Index) Len() int { return len(x.files) }

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
