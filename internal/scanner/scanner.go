package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// Options narrows what a scan covers. Zero values mean "everything".
type Options struct {
	Categories     []model.Category
	Languages      []model.Language
	IgnorePatterns []string
	Workers        int
}

// Scanner walks targets and applies the catalog file by file. Scans of
// distinct runs are independent; the catalog is shared read-only state.
type Scanner struct {
	cat  *catalog.Catalog
	opts Options
	log  *slog.Logger
}

func New(cat *catalog.Catalog, opts Options, log *slog.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{cat: cat, opts: opts, log: log}
}

type fileResult struct {
	path     string
	findings []model.Finding
	diag     *model.Diagnostic
}

// Run scans every target into the given run. Per-path and per-file failures
// become diagnostics, never abort the batch. On context cancellation the run
// moves to Cancelled: in-flight files finish, nothing new is dispatched.
func (s *Scanner) Run(ctx context.Context, run *model.ScanRun) error {
	if err := run.Advance(model.StateScanning); err != nil {
		return err
	}

	paths, diags := s.resolve(run.Targets)
	run.Diagnostics = append(run.Diagnostics, diags...)

	// A language selection narrows the file set, not just the rule set:
	// files outside the selection are out of scope entirely.
	if len(s.opts.Languages) > 0 {
		want := map[model.Language]bool{}
		for _, l := range s.opts.Languages {
			want[l] = true
		}
		kept := paths[:0]
		for _, p := range paths {
			if want[model.DetectLanguage(p)] {
				kept = append(kept, p)
			}
		}
		paths = kept
	}

	active := s.cat.Select(s.opts.Categories, s.opts.Languages)

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- s.scanOne(p, active)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	cancelled := false
	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	// Single-writer merge into the run.
	for res := range results {
		if res.diag != nil {
			run.Diagnostics = append(run.Diagnostics, *res.diag)
			continue
		}
		run.Findings = append(run.Findings, res.findings...)
		run.Summary.FilesScanned++
	}
	if ctx.Err() != nil {
		cancelled = true
	}

	if cancelled {
		s.log.Warn("scan cancelled", "run", run.ID, "scanned", run.Summary.FilesScanned)
		return run.Advance(model.StateCancelled)
	}
	return nil
}

// resolve expands targets into a sorted list of candidate file paths.
func (s *Scanner) resolve(targets []string) ([]string, []model.Diagnostic) {
	var paths []string
	var diags []model.Diagnostic
	seen := map[string]bool{}

	for _, t := range targets {
		info, err := os.Stat(t)
		if err != nil {
			diags = append(diags, model.Diagnostic{
				File: t, Kind: model.DiagTargetMissing, Detail: err.Error(),
			})
			continue
		}
		if !info.IsDir() {
			if !seen[t] {
				seen[t] = true
				paths = append(paths, t)
			}
			continue
		}
		ignore := newIgnoreList(t, s.opts.IgnorePatterns)
		walkErr := filepath.WalkDir(t, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				diags = append(diags, model.Diagnostic{
					File: p, Kind: model.DiagScanError, Detail: err.Error(),
				})
				return nil
			}
			if d.IsDir() {
				if p != t && ignore.Match(p) {
					return fs.SkipDir
				}
				return nil
			}
			if ignore.Match(p) || seen[p] {
				return nil
			}
			seen[p] = true
			paths = append(paths, p)
			return nil
		})
		if walkErr != nil {
			diags = append(diags, model.Diagnostic{
				File: t, Kind: model.DiagTargetMissing, Detail: walkErr.Error(),
			})
		}
	}
	sort.Strings(paths)
	return paths, diags
}

func (s *Scanner) scanOne(path string, rules []catalog.Rule) fileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{path: path, diag: &model.Diagnostic{
			File: path, Kind: model.DiagScanError, Detail: err.Error(),
		}}
	}
	if isBinary(content) {
		s.log.Debug("skipping binary file", "path", path)
		return fileResult{path: path, diag: &model.Diagnostic{
			File: path, Kind: model.DiagBinarySkipped,
		}}
	}
	findings, err := ScanFile(path, content, rules)
	if err != nil {
		return fileResult{path: path, diag: &model.Diagnostic{
			File: path, Kind: model.DiagScanError, Detail: err.Error(),
		}}
	}
	return fileResult{path: path, findings: findings}
}

// ScanFile applies every applicable rule to the content line by line. It is
// pure: identical (path, content, rules) always yields identical findings.
// Unknown languages yield zero findings. A line the scanner cannot buffer
// fails the whole file rather than truncating coverage mid-file.
func ScanFile(path string, content []byte, rules []catalog.Rule) ([]model.Finding, error) {
	lang := model.DetectLanguage(path)
	if lang == model.LangUnknown {
		return nil, nil
	}
	var applicable []catalog.Rule
	for _, r := range rules {
		if r.AppliesTo(lang) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return nil, nil
	}

	var out []model.Finding
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		for _, r := range applicable {
			frag, ok := r.MatchLine(line)
			if !ok {
				continue
			}
			out = append(out, model.Finding{
				RuleID:   r.ID,
				Category: r.Category,
				Severity: r.Severity,
				File:     filepath.ToSlash(path),
				Lines:    model.LineRange{Start: lineNo, End: lineNo},
				Match:    frag,
				Message:  r.Message,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return out, nil
}

const maxLineBytes = 4 * 1024 * 1024

// isBinary treats any NUL byte in the leading window as binary content.
func isBinary(content []byte) bool {
	const window = 8000
	b := content
	if len(b) > window {
		b = b[:window]
	}
	return bytes.IndexByte(b, 0) >= 0
}
