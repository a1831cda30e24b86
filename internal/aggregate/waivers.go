package aggregate

import (
	"strings"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

// ApplyWaivers filters out findings that match any active waiver.
// Returns (kept, waivedCount).
func ApplyWaivers(in []model.Finding, waivers []storage.Waiver) ([]model.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	var out []model.Finding
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !strings.EqualFold(strings.TrimSpace(f.RuleID), strings.TrimSpace(w.RuleID)) {
				continue
			}
			if w.PathSub != "" && !strings.Contains(f.File, w.PathSub) {
				continue
			}
			if w.PatternSub != "" {
				ps := strings.ToLower(w.PatternSub)
				if !strings.Contains(strings.ToLower(f.Match), ps) &&
					!strings.Contains(strings.ToLower(f.Message), ps) {
					continue
				}
			}
			waived++
			continue nextFinding
		}
		out = append(out, f)
	}
	return out, waived
}
