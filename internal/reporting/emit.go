package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// Format selects a report rendering.
type Format string

const (
	FormatStructured Format = "structured"
	FormatHuman      Format = "human"
)

// ReportError reports a format the emitter does not support. It is validated
// eagerly, before any scanning, since there is no reasonable partial report.
type ReportError struct {
	Format string
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("unsupported report format %q (want structured or human)", e.Format)
}

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatStructured, FormatHuman:
		return Format(s), nil
	}
	return "", &ReportError{Format: s}
}

// Emit renders the run in the given format. Emission never mutates the run
// and is deterministic: the same run and format always produce identical
// bytes. The run must have been aggregated (or cancelled) first.
func Emit(run *model.ScanRun, format Format) ([]byte, error) {
	switch run.State {
	case model.StateAggregated, model.StateReported, model.StateCancelled:
	default:
		return nil, fmt.Errorf("cannot report run in state %q before aggregation", run.State)
	}
	switch format {
	case FormatStructured:
		b, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatHuman:
		return emitHuman(run), nil
	}
	return nil, &ReportError{Format: string(format)}
}

// WriteStructured exports the structured report as <run id>.json under outDir.
// The file is the durable artifact used externally for trend computation.
func WriteStructured(run *model.ScanRun, outDir string) (string, error) {
	b, err := Emit(run, FormatStructured)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, run.ID+".json")
	return path, os.WriteFile(path, b, 0o644)
}
