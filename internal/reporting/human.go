package reporting

import (
	"fmt"
	"strings"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// severityOrder lists severities for rendering, highest first.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
}

// emitHuman renders the run grouped by category, severity-sorted inside each
// group, with file:line references. The skipped-file count is always stated
// so reduced coverage is never silent.
func emitHuman(run *model.ScanRun) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "avastscan report — %s\n", run.ID)
	fmt.Fprintf(&b, "Targets: %s\n", strings.Join(run.Targets, ", "))
	if run.State == model.StateCancelled {
		b.WriteString("State: CANCELLED — partial results, not authoritative for gating\n")
	}
	fmt.Fprintf(&b, "Files scanned: %d, skipped: %d\n",
		run.Summary.FilesScanned, run.Summary.FilesSkipped)
	for _, d := range run.Diagnostics {
		switch d.Kind {
		case model.DiagBinarySkipped:
			fmt.Fprintf(&b, "  skipped (binary): %s\n", d.File)
		case model.DiagScanError:
			fmt.Fprintf(&b, "  skipped (error): %s: %s\n", d.File, d.Detail)
		case model.DiagTargetMissing:
			fmt.Fprintf(&b, "  target unavailable: %s: %s\n", d.File, d.Detail)
		}
	}
	if run.Summary.Waived > 0 {
		fmt.Fprintf(&b, "Waived findings: %d\n", run.Summary.Waived)
	}
	b.WriteByte('\n')

	if len(run.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	for _, cat := range model.Categories() {
		var group []model.Finding
		for _, f := range run.Findings {
			if f.Category == cat {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", cat, len(group))
		for _, sev := range severityOrder {
			for _, f := range group {
				if f.Severity != sev {
					continue
				}
				fmt.Fprintf(&b, "  [%s] %s %s:%d  %s\n",
					strings.ToUpper(string(f.Severity)), f.RuleID, f.File, f.Lines.Start, f.Message)
				if f.Match != "" {
					fmt.Fprintf(&b, "      match: %s\n", f.Match)
				}
			}
		}
		b.WriteByte('\n')
	}

	if run.State == model.StateCancelled {
		b.WriteString("Gate: NOT EVALUATED (run cancelled)\n")
	} else if run.Summary.GateFailed {
		fmt.Fprintf(&b, "Gate: FAIL (threshold %s)\n", run.Summary.Threshold)
	} else {
		fmt.Fprintf(&b, "Gate: PASS (threshold %s)\n", run.Summary.Threshold)
	}
	return []byte(b.String())
}
