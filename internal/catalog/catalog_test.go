package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	return path
}

func TestLoad_BuiltinPack(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load builtin: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatalf("builtin pack is empty")
	}
	r, ok := cat.Get("avast-auth-001")
	if !ok {
		t.Fatalf("builtin pack missing avast-auth-001")
	}
	if r.Category != model.CategoryAuthentication || r.Severity != model.SeverityCritical {
		t.Fatalf("avast-auth-001 = %s/%s", r.Category, r.Severity)
	}
	// every builtin rule must sit in the five-category set
	for _, r := range cat.Rules() {
		if _, err := model.ParseCategory(string(r.Category)); err != nil {
			t.Errorf("rule %s: %v", r.ID, err)
		}
	}
}

func TestLoad_DuplicateIDFails(t *testing.T) {
	pack := writePack(t, `
rules:
  - id: dup-1
    category: Secrets
    severity: high
    message: first
    match: {kind: regex, pattern: "a"}
  - id: dup-1
    category: Secrets
    severity: low
    message: second
    match: {kind: regex, pattern: "b"}
`)
	_, err := Load(pack)
	if err == nil {
		t.Fatalf("expected CatalogError for duplicate id")
	}
	var ce *CatalogError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *CatalogError", err)
	}
	if ce.RuleID != "dup-1" {
		t.Fatalf("CatalogError names rule %q, want dup-1", ce.RuleID)
	}
}

func TestLoad_MalformedRules(t *testing.T) {
	cases := map[string]string{
		"missing id": `
rules:
  - category: Secrets
    severity: high
    message: m
    match: {kind: regex, pattern: "a"}
`,
		"bad category": `
rules:
  - id: r1
    category: Networking
    severity: high
    message: m
    match: {kind: regex, pattern: "a"}
`,
		"bad severity": `
rules:
  - id: r1
    category: Secrets
    severity: urgent
    message: m
    match: {kind: regex, pattern: "a"}
`,
		"bad regex": `
rules:
  - id: r1
    category: Secrets
    severity: high
    message: m
    match: {kind: regex, pattern: "["}
`,
		"unknown matcher kind": `
rules:
  - id: r1
    category: Secrets
    severity: high
    message: m
    match: {kind: ast-walk, pattern: "a"}
`,
	}
	for name, pack := range cases {
		path := writePack(t, pack)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected CatalogError", name)
		}
	}
}

func TestLoad_LaterPackOverridesByID(t *testing.T) {
	pack := writePack(t, `
rules:
  - id: avast-auth-001
    category: Authentication
    severity: low
    message: downgraded for this repo
    match: {kind: regex, pattern: "password\\s*=\\s*['\"]"}
`)
	cat, err := Load(pack)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, ok := cat.Get("avast-auth-001")
	if !ok {
		t.Fatalf("rule missing after override")
	}
	if r.Severity != model.SeverityLow {
		t.Fatalf("override severity = %s, want low", r.Severity)
	}
}

func TestSelect_ByCategoryAndLanguage(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	onlySecrets := cat.Select([]model.Category{model.CategorySecrets}, nil)
	if len(onlySecrets) == 0 {
		t.Fatalf("no Secrets rules selected")
	}
	for _, r := range onlySecrets {
		if r.Category != model.CategorySecrets {
			t.Errorf("rule %s leaked category %s", r.ID, r.Category)
		}
	}
	onlyPython := cat.Select(nil, []model.Language{model.LangPython})
	for _, r := range onlyPython {
		if len(r.Languages) > 0 && !r.Languages[model.LangPython] {
			t.Errorf("rule %s does not target python", r.ID)
		}
	}
}

func TestRegexMatcher(t *testing.T) {
	r, err := compile(packRuleOf(t, "regex", `password\s*=\s*['"]`, nil, ""))
	if err != nil {
		t.Fatal(err)
	}
	if frag, ok := r.MatchLine(`password = "hunter2"`); !ok || frag != `password = "` {
		t.Fatalf("match = %q, %v", frag, ok)
	}
	if _, ok := r.MatchLine(`password = hash(input)`); ok {
		t.Fatalf("must not match call expression")
	}
}

func TestTokenSequenceMatcher(t *testing.T) {
	r, err := compile(packRuleOf(t, "token-sequence", "", []string{"eval", "("}, ""))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.MatchLine(`result = EVAL (userInput)`); !ok {
		t.Fatalf("token match is case-insensitive and whitespace-tolerant")
	}
	if _, ok := r.MatchLine(`evaluate(x)`); ok {
		t.Fatalf("must not match inside a longer identifier")
	}
}

func TestImportPresenceMatcher(t *testing.T) {
	r, err := compile(packRuleOf(t, "import-presence", "", nil, "pickle"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.MatchLine("import pickle"); !ok {
		t.Fatalf("plain import must match")
	}
	if _, ok := r.MatchLine("from pickle import loads"); !ok {
		t.Fatalf("from-import must match")
	}
	if _, ok := r.MatchLine("data = pickle.loads(blob)"); ok {
		t.Fatalf("usage without import keyword must not match")
	}
}

func packRuleOf(t *testing.T, kind, pattern string, tokens []string, module string) packRule {
	t.Helper()
	var pr packRule
	pr.ID = "t-1"
	pr.Category = "Validation"
	pr.Severity = "high"
	pr.Message = "test rule"
	pr.Match.Kind = kind
	pr.Match.Pattern = pattern
	pr.Match.Tokens = tokens
	pr.Match.Module = module
	return pr
}
