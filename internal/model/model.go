package model

import (
	"fmt"
	"strings"
	"time"
)

const Version = "1.0"

// Severity levels, ordered critical > high > medium > low.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityLow:
		return SeverityLow, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank maps severities onto a comparable scale; unknown ranks below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Category is one of the five AVAST vulnerability categories.
type Category string

const (
	CategoryAuthentication Category = "Authentication"
	CategoryValidation     Category = "Validation"
	CategoryAuditing       Category = "Auditing"
	CategorySecrets        Category = "Secrets"
	CategoryTrust          Category = "Trust"
)

func Categories() []Category {
	return []Category{
		CategoryAuthentication,
		CategoryValidation,
		CategoryAuditing,
		CategorySecrets,
		CategoryTrust,
	}
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// LineRange is a 1-based inclusive span within a file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Finding is one rule match inside one file.
type Finding struct {
	RuleID   string    `json:"rule_id"`
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
	File     string    `json:"file"`
	Lines    LineRange `json:"lines"`
	Match    string    `json:"match,omitempty"`
	Message  string    `json:"message"`
}

// Diagnostic records a file-level condition that is not a Finding
// (skipped binaries, unreadable targets, mid-scan failures).
type Diagnostic struct {
	File   string `json:"file"`
	Kind   string `json:"kind"` // binary-skipped | target-missing | scan-error
	Detail string `json:"detail,omitempty"`
}

const (
	DiagBinarySkipped = "binary-skipped"
	DiagTargetMissing = "target-missing"
	DiagScanError     = "scan-error"
)

// RunState tracks a ScanRun through its lifecycle. Transitions are strictly
// forward; Cancelled is terminal and reachable only before Aggregated.
type RunState string

const (
	StatePending    RunState = "pending"
	StateScanning   RunState = "scanning"
	StateAggregated RunState = "aggregated"
	StateReported   RunState = "reported"
	StateCancelled  RunState = "cancelled"
)

var forward = map[RunState]map[RunState]bool{
	StatePending:    {StateScanning: true, StateCancelled: true},
	StateScanning:   {StateAggregated: true, StateCancelled: true},
	StateAggregated: {StateReported: true},
	StateReported:   {},
	StateCancelled:  {},
}

// Summary holds aggregate counts and the gate decision for one run.
type Summary struct {
	FilesScanned int              `json:"files_scanned"`
	FilesSkipped int              `json:"files_skipped"`
	BySeverity   map[Severity]int `json:"by_severity"`
	ByCategory   map[Category]int `json:"by_category"`
	Waived       int              `json:"waived,omitempty"`
	Threshold    Severity         `json:"threshold"`
	GateFailed   bool             `json:"gate_failed"`
}

// ScanRun is one independent scan: created pending, finalized at reporting.
type ScanRun struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"started_at"`
	Targets     []string     `json:"targets"`
	State       RunState     `json:"state"`
	Findings    []Finding    `json:"findings"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Summary     Summary      `json:"summary"`
}

func NewScanRun(targets []string) *ScanRun {
	return &ScanRun{
		ID:        fmt.Sprintf("run-%d", time.Now().Unix()),
		StartedAt: time.Now().UTC(),
		Targets:   targets,
		State:     StatePending,
	}
}

// Advance moves the run to next, rejecting backward or skipped transitions.
func (r *ScanRun) Advance(next RunState) error {
	if forward[r.State][next] {
		r.State = next
		return nil
	}
	return fmt.Errorf("invalid run state transition %s -> %s", r.State, next)
}

// Authoritative reports whether the run may drive a gate decision.
// Cancelled runs are never authoritative.
func (r *ScanRun) Authoritative() bool {
	return r.State == StateAggregated || r.State == StateReported
}
