package golden

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CEA-Brad/avast-toolkit/internal/aggregate"
	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/scanner"
)

var update = flag.Bool("update", false, "update golden snapshot")

const goldenFile = "expected.json"

var sampleFiles = map[string]string{
	"app.js": `const db = require("./db");
const password = "hunter2";
el.innerHTML = userInput;
`,
	"deploy.py": `import pickle
subprocess.run(cmd, shell=True)
`,
}

func TestGolden_SampleSnapshot(t *testing.T) {
	// Build a temp input dir
	dir := t.TempDir()
	for name, content := range sampleFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write sample: %v", err)
		}
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	// Scan → Finalize with the default gate threshold
	run := model.NewScanRun([]string{dir})
	s := scanner.New(cat, scanner.Options{Workers: 1}, nil)
	if err := s.Run(context.Background(), run); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := aggregate.Finalize(run, model.SeverityHigh); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Normalize volatile fields before snapshot
	norm := normalize(run, dir)

	got, err := json.MarshalIndent(norm, "", "  ")
	if err != nil {
		t.Fatalf("marshal got: %v", err)
	}

	if *update {
		if err := os.WriteFile(goldenFile, got, 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		t.Logf("updated %s", goldenFile)
		return
	}

	want, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("read golden (%s): %v\nRun with: go test ./test/golden -run TestGolden_SampleSnapshot -args -update", goldenFile, err)
	}

	if !bytes.Equal(bytes.TrimSpace(got), bytes.TrimSpace(want)) {
		tmp := filepath.Join(t.TempDir(), "got.json")
		_ = os.WriteFile(tmp, got, 0o644)
		t.Fatalf("golden mismatch.\n  golden: %s\n  actual: %s\nTip: update with\n  go test ./test/golden -run TestGolden_SampleSnapshot -count=1 -args -update", goldenFile, tmp)
	}
}

type runLite struct {
	ID       string        `json:"id"`
	State    string        `json:"state"`
	Targets  []string      `json:"targets"`
	Findings []findingLite `json:"findings"`
	Summary  model.Summary `json:"summary"`
}

type findingLite struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Match    string `json:"match"`
	Message  string `json:"message"`
}

// normalize removes volatile fields (run id, timestamp, temp-dir prefixes).
// Finding order is already canonical after Finalize.
func normalize(run *model.ScanRun, root string) runLite {
	prefix := filepath.ToSlash(root) + "/"

	finds := make([]findingLite, 0, len(run.Findings))
	for _, f := range run.Findings {
		finds = append(finds, findingLite{
			RuleID:   f.RuleID,
			Category: string(f.Category),
			Severity: string(f.Severity),
			File:     strings.TrimPrefix(f.File, prefix),
			Line:     f.Lines.Start,
			Match:    f.Match,
			Message:  f.Message,
		})
	}

	return runLite{
		ID:       "run-golden",
		State:    string(run.State),
		Targets:  []string{"sample"},
		Findings: finds,
		Summary:  run.Summary,
	}
}
