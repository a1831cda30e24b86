package perf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CEA-Brad/avast-toolkit/internal/aggregate"
	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/scanner"
)

const benchSource = `const db = require("./db");
const password = "secret123";
function handler(req, res) {
  const q = "SELECT * FROM users WHERE id = '" + req.params.id + "'";
  el.innerHTML = req.body.html;
  try { db.run(q); } catch (e) {}
}
`

func BenchmarkScanFile(b *testing.B) {
	cat, err := catalog.Load()
	if err != nil {
		b.Fatal(err)
	}
	rules := cat.Rules()
	content := []byte(strings.Repeat(benchSource, 50))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		findings, err := scanner.ScanFile("bench.js", content, rules)
		if err != nil {
			b.Fatal(err)
		}
		if len(findings) == 0 {
			b.Fatal("no findings on known-vulnerable input")
		}
	}
}

func BenchmarkScanTree(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 20; i++ {
		name := filepath.Join(dir, "f"+string(rune('a'+i))+".js")
		if err := os.WriteFile(name, []byte(benchSource), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	cat, err := catalog.Load()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		run := model.NewScanRun([]string{dir})
		s := scanner.New(cat, scanner.Options{Workers: 4}, nil)
		if err := s.Run(context.Background(), run); err != nil {
			b.Fatal(err)
		}
		if err := aggregate.Finalize(run, model.SeverityHigh); err != nil {
			b.Fatal(err)
		}
		if len(run.Findings) == 0 {
			b.Fatal("no findings scanned")
		}
	}
}
