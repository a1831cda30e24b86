package model

import "testing"

func TestSeverityOrdering(t *testing.T) {
	if SeverityCritical.Rank() <= SeverityHigh.Rank() {
		t.Fatalf("critical must outrank high")
	}
	if SeverityHigh.Rank() <= SeverityMedium.Rank() {
		t.Fatalf("high must outrank medium")
	}
	if SeverityMedium.Rank() <= SeverityLow.Rank() {
		t.Fatalf("medium must outrank low")
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatalf("unknown severity must rank below low")
	}
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" HIGH ")
	if err != nil || s != SeverityHigh {
		t.Fatalf("ParseSeverity(HIGH) = %q, %v", s, err)
	}
	if _, err := ParseSeverity("urgent"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("secrets")
	if err != nil || c != CategorySecrets {
		t.Fatalf("ParseCategory(secrets) = %q, %v", c, err)
	}
	if _, err := ParseCategory("Networking"); err == nil {
		t.Fatalf("expected error for category outside the five")
	}
	if n := len(Categories()); n != 5 {
		t.Fatalf("expected 5 categories, got %d", n)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"a/b/app.js":    LangJavaScript,
		"handler.py":    LangPython,
		"Main.java":     LangJava,
		"main.tf":       LangTerraform,
		"deploy.sh":     LangShell,
		"values.YAML":   LangYAML,
		"notes.txt":     LangUnknown,
		"Dockerfile":    LangUnknown,
		"component.tsx": LangTypeScript,
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestRunStateForwardOnly(t *testing.T) {
	run := NewScanRun([]string{"."})
	if run.State != StatePending {
		t.Fatalf("new run state = %q", run.State)
	}
	// Reported before Aggregated is fatal.
	if err := run.Advance(StateReported); err == nil {
		t.Fatalf("pending -> reported must be rejected")
	}
	for _, next := range []RunState{StateScanning, StateAggregated, StateReported} {
		if err := run.Advance(next); err != nil {
			t.Fatalf("advance to %q: %v", next, err)
		}
	}
	// Terminal: no rescanning of a completed run.
	if err := run.Advance(StateScanning); err == nil {
		t.Fatalf("reported -> scanning must be rejected")
	}
}

func TestRunStateCancelled(t *testing.T) {
	run := NewScanRun(nil)
	if err := run.Advance(StateScanning); err != nil {
		t.Fatal(err)
	}
	if err := run.Advance(StateCancelled); err != nil {
		t.Fatal(err)
	}
	if run.Authoritative() {
		t.Fatalf("cancelled run must not be authoritative")
	}
	if err := run.Advance(StateAggregated); err == nil {
		t.Fatalf("cancelled is terminal")
	}
}
