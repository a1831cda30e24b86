package aggregate

import (
	"testing"
	"time"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

func finding(rule, file string, line int, sev model.Severity, cat model.Category) model.Finding {
	return model.Finding{
		RuleID:   rule,
		Category: cat,
		Severity: sev,
		File:     file,
		Lines:    model.LineRange{Start: line, End: line},
		Message:  "m",
	}
}

func scanningRun(findings ...model.Finding) *model.ScanRun {
	run := model.NewScanRun([]string{"."})
	if err := run.Advance(model.StateScanning); err != nil {
		panic(err)
	}
	run.Findings = findings
	return run
}

func TestFinalize_DedupesIdenticalSpans(t *testing.T) {
	f := finding("r1", "a.js", 3, model.SeverityHigh, model.CategorySecrets)
	run := scanningRun(f, f, finding("r1", "a.js", 4, model.SeverityHigh, model.CategorySecrets))
	if err := Finalize(run, model.SeverityHigh); err != nil {
		t.Fatal(err)
	}
	if len(run.Findings) != 2 {
		t.Fatalf("findings = %d, want 2 after dedupe", len(run.Findings))
	}
}

func TestFinalize_CountsAndSort(t *testing.T) {
	run := scanningRun(
		finding("r2", "b.js", 9, model.SeverityLow, model.CategoryAuditing),
		finding("r1", "a.js", 3, model.SeverityCritical, model.CategorySecrets),
		finding("r3", "a.js", 1, model.SeverityHigh, model.CategorySecrets),
	)
	run.Diagnostics = []model.Diagnostic{{File: "x.bin", Kind: model.DiagBinarySkipped}}
	if err := Finalize(run, model.SeverityHigh); err != nil {
		t.Fatal(err)
	}

	// canonical order: file, then line, then rule
	wantOrder := []string{"r3", "r1", "r2"}
	for i, id := range wantOrder {
		if run.Findings[i].RuleID != id {
			t.Fatalf("order[%d] = %s, want %s", i, run.Findings[i].RuleID, id)
		}
	}
	if run.Summary.BySeverity[model.SeverityCritical] != 1 || run.Summary.BySeverity[model.SeverityLow] != 1 {
		t.Fatalf("severity counts = %+v", run.Summary.BySeverity)
	}
	if run.Summary.ByCategory[model.CategorySecrets] != 2 {
		t.Fatalf("category counts = %+v", run.Summary.ByCategory)
	}
	if run.Summary.FilesSkipped != 1 {
		t.Fatalf("skipped = %d", run.Summary.FilesSkipped)
	}
	if run.State != model.StateAggregated {
		t.Fatalf("state = %s", run.State)
	}
}

func TestGate_MonotonicInThreshold(t *testing.T) {
	findings := []model.Finding{
		finding("r1", "a.js", 1, model.SeverityMedium, model.CategoryValidation),
	}
	thresholds := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
	}
	// lowering the threshold may only turn a pass into a fail, never back
	failed := false
	for _, th := range thresholds {
		now := GateFails(findings, th)
		if failed && !now {
			t.Fatalf("gate flipped back to pass at threshold %s", th)
		}
		failed = now
	}
	if !failed {
		t.Fatalf("medium finding must fail at low threshold")
	}
	if GateFails(findings, model.SeverityHigh) {
		t.Fatalf("medium finding must pass at high threshold")
	}
}

func TestFinalize_RejectsPendingRun(t *testing.T) {
	run := model.NewScanRun(nil)
	if err := Finalize(run, model.SeverityHigh); err == nil {
		t.Fatalf("pending run cannot be aggregated")
	}
}

func TestApplyWaivers(t *testing.T) {
	findings := []model.Finding{
		finding("r1", "src/a.js", 1, model.SeverityHigh, model.CategorySecrets),
		finding("r1", "vendor/b.js", 2, model.SeverityHigh, model.CategorySecrets),
		finding("r2", "src/a.js", 3, model.SeverityLow, model.CategoryAuditing),
	}
	waivers := []storage.Waiver{
		{RuleID: "R1", PathSub: "vendor/", Reason: "third-party", ExpiresAt: time.Now().Add(time.Hour)},
	}
	kept, waived := ApplyWaivers(findings, waivers)
	if waived != 1 {
		t.Fatalf("waived = %d, want 1", waived)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	for _, f := range kept {
		if f.File == "vendor/b.js" {
			t.Fatalf("vendor finding should have been waived")
		}
	}
}
