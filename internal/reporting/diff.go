package reporting

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// DiffReport compares the findings of two runs: the raw material for
// week-over-week trend reporting.
type DiffReport struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary diffSummary   `json:"summary"`
	New     []diffFinding `json:"new"`
	Removed []diffFinding `json:"removed"`
	Changed []diffChanged `json:"changed"`
}

type diffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type diffFinding struct {
	RuleID   string         `json:"rule_id"`
	File     string         `json:"file"`
	Line     int            `json:"line"`
	Severity model.Severity `json:"severity,omitempty"`
	Message  string         `json:"message,omitempty"`
}

type diffChanged struct {
	Key     string      `json:"key"`
	Base    diffFinding `json:"base"`
	Head    diffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Diff indexes both runs by finding identity (rule, file, line span) and
// classifies additions, removals, and in-place changes with a stable order.
func Diff(base, head *model.ScanRun) DiffReport {
	bm := map[string]model.Finding{}
	hm := map[string]model.Finding{}
	for _, f := range base.Findings {
		bm[keyOf(f)] = f
	}
	for _, f := range head.Findings {
		hm[keyOf(f)] = f
	}

	var added, removed []diffFinding
	var changed []diffChanged

	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, asDiff(hf))
			continue
		}
		var fields []string
		if bf.Severity != hf.Severity {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
			fields = append(fields, "message")
		}
		if len(fields) > 0 {
			changed = append(changed, diffChanged{
				Key:     k,
				Base:    asDiff(bf),
				Head:    asDiff(hf),
				Changed: fields,
			})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, asDiff(bf))
		}
	}

	sortDiff(added)
	sortDiff(removed)
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return DiffReport{
		BaseID: base.ID, HeadID: head.ID,
		Summary: diffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

// EmitDiff renders a diff report deterministically.
func EmitDiff(d DiffReport) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortDiff(fs []diffFinding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		if fs[i].Line != fs[j].Line {
			return fs[i].Line < fs[j].Line
		}
		return fs[i].RuleID < fs[j].RuleID
	})
}

func keyOf(f model.Finding) string {
	return fmt.Sprintf("%s|%s|%d-%d", f.RuleID, f.File, f.Lines.Start, f.Lines.End)
}

func asDiff(f model.Finding) diffFinding {
	return diffFinding{
		RuleID:   f.RuleID,
		File:     f.File,
		Line:     f.Lines.Start,
		Severity: f.Severity,
		Message:  f.Message,
	}
}
