package aggregate

import (
	"sort"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// Finalize dedupes and orders the run's findings, computes summary counts,
// and records the gate decision. A Cancelled run is summarized for visibility
// but keeps its state and never fails (or passes) the gate: callers must not
// treat it as authoritative.
func Finalize(run *model.ScanRun, threshold model.Severity) error {
	run.Findings = dedupe(run.Findings)
	Sort(run.Findings)

	waived := run.Summary.Waived
	sum := model.Summary{
		FilesScanned: run.Summary.FilesScanned,
		BySeverity:   map[model.Severity]int{},
		ByCategory:   map[model.Category]int{},
		Waived:       waived,
		Threshold:    threshold,
	}
	for _, d := range run.Diagnostics {
		if d.Kind == model.DiagBinarySkipped || d.Kind == model.DiagScanError {
			sum.FilesSkipped++
		}
	}
	for _, f := range run.Findings {
		sum.BySeverity[f.Severity]++
		sum.ByCategory[f.Category]++
	}

	if run.State == model.StateCancelled {
		run.Summary = sum
		return nil
	}
	if err := run.Advance(model.StateAggregated); err != nil {
		return err
	}
	sum.GateFailed = GateFails(run.Findings, threshold)
	run.Summary = sum
	return nil
}

// GateFails reports whether any finding sits at or above the threshold.
// Lowering the threshold can only grow the failing set, never shrink it.
func GateFails(findings []model.Finding, threshold model.Severity) bool {
	for _, f := range findings {
		if f.Severity.Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}

// Sort orders findings by file path, then line, then rule id. The merge out
// of the worker pool is unordered; this is the canonical report order.
func Sort(findings []model.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Lines.Start != b.Lines.Start {
			return a.Lines.Start < b.Lines.Start
		}
		return a.RuleID < b.RuleID
	})
}

// dedupe drops findings whose (rule_id, file, line range) repeat; overlapping
// matcher passes can produce identical spans.
func dedupe(findings []model.Finding) []model.Finding {
	if len(findings) < 2 {
		return findings
	}
	type key struct {
		rule  string
		file  string
		lines model.LineRange
	}
	seen := map[key]bool{}
	out := findings[:0]
	for _, f := range findings {
		k := key{rule: f.RuleID, file: f.File, lines: f.Lines}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}
