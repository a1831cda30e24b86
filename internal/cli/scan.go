package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/aggregate"
	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/reporting"
	"github.com/CEA-Brad/avast-toolkit/internal/scanner"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

var (
	scanThreshold  string
	scanCategories []string
	scanLanguages  []string
	scanFormat     string
	scanRulePacks  []string
	scanIgnore     []string
	scanOutDir     string
	scanDBPath     string
	scanWorkers    int
)

var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Scan files or directory roots against the rule catalog",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil && configPath != "" {
			fatal("config load failed", err)
		}
		logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		// precedence: flags > config > defaults
		if scanThreshold == "" {
			scanThreshold = cfg.Scan.SeverityThreshold
		}
		if scanFormat == "" {
			scanFormat = cfg.Reporting.Format
		}
		if len(scanCategories) == 0 {
			scanCategories = cfg.Scan.Categories
		}
		if len(scanLanguages) == 0 {
			scanLanguages = cfg.Scan.Languages
		}
		if len(scanRulePacks) == 0 {
			scanRulePacks = cfg.Scan.RulePacks
		}
		if len(scanIgnore) == 0 {
			scanIgnore = cfg.Scan.Ignore
		}
		if scanDBPath == "" {
			scanDBPath = cfg.Database.DSN
		}
		if scanWorkers == 0 {
			scanWorkers = cfg.Scan.Workers
		}

		// Validate configuration eagerly, before any scanning.
		threshold, err := model.ParseSeverity(scanThreshold)
		if err != nil {
			fatal("invalid --threshold", err)
		}
		format, err := reporting.ParseFormat(scanFormat)
		if err != nil {
			fatal("invalid --format", err)
		}
		var cats []model.Category
		for _, c := range scanCategories {
			cat, err := model.ParseCategory(c)
			if err != nil {
				fatal("invalid --categories", err)
			}
			cats = append(cats, cat)
		}
		var langs []model.Language
		for _, l := range scanLanguages {
			lang, err := model.ParseLanguage(l)
			if err != nil {
				fatal("invalid --languages", err)
			}
			langs = append(langs, lang)
		}
		cat, err := catalog.Load(scanRulePacks...)
		if err != nil {
			fatal("catalog load failed", err)
		}
		logger.Info("catalog loaded", "rules", cat.Len(), "packs", len(scanRulePacks))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run := model.NewScanRun(args)
		sc := scanner.New(cat, scanner.Options{
			Categories:     cats,
			Languages:      langs,
			IgnorePatterns: scanIgnore,
			Workers:        scanWorkers,
		}, logger)
		if err := sc.Run(ctx, run); err != nil {
			fatal("scan failed", err)
		}

		var db *storage.DB
		if scanDBPath != "" {
			db, err = storage.OpenSQLite(scanDBPath)
			if err != nil {
				fatal("db open failed", err)
			}
			defer db.Close()
			if err := db.CreateSchema(); err != nil {
				fatal("db schema failed", err)
			}
			waivers, err := db.ListWaivers(true)
			if err != nil {
				fatal("db waiver query failed", err)
			}
			kept, waived := aggregate.ApplyWaivers(run.Findings, waivers)
			run.Findings = kept
			run.Summary.Waived = waived
		}

		if err := aggregate.Finalize(run, threshold); err != nil {
			fatal("aggregation failed", err)
		}

		out, exportPath, err := emitRun(run, format, scanOutDir)
		if err != nil {
			fatal("report failed", err)
		}
		os.Stdout.Write(out)
		if exportPath != "" {
			logger.Info("structured report exported", "path", exportPath)
		}
		if db != nil {
			if err := db.SaveRun(run); err != nil {
				fatal("db save failed", err)
			}
			logger.Info("run persisted", "run", run.ID, "db", scanDBPath)
		}

		switch {
		case run.State == model.StateCancelled:
			// partial coverage: never a pass/fail verdict
			os.Exit(exitInternal)
		case run.Summary.GateFailed:
			os.Exit(exitGateFail)
		default:
			os.Exit(exitPass)
		}
	},
}

// emitRun advances a finished run to Reported before rendering anything, so
// the stdout report and the --out export describe the run in the same state.
// Cancelled runs keep their state.
func emitRun(run *model.ScanRun, format reporting.Format, outDir string) (out []byte, exportPath string, err error) {
	if run.State != model.StateCancelled {
		if err := run.Advance(model.StateReported); err != nil {
			return nil, "", err
		}
	}
	out, err = reporting.Emit(run, format)
	if err != nil {
		return nil, "", err
	}
	if outDir != "" {
		exportPath, err = reporting.WriteStructured(run, outDir)
		if err != nil {
			return nil, "", err
		}
	}
	return out, exportPath, nil
}

func init() {
	scanCmd.Flags().StringVarP(&scanThreshold, "threshold", "t", "", "Gate severity threshold (critical|high|medium|low)")
	scanCmd.Flags().StringSliceVar(&scanCategories, "categories", nil, "Restrict to categories (default all five)")
	scanCmd.Flags().StringSliceVar(&scanLanguages, "languages", nil, "Restrict to languages (default auto-detect)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Report format (structured|human)")
	scanCmd.Flags().StringSliceVar(&scanRulePacks, "rules", nil, "Extra rule pack paths, later packs override by id")
	scanCmd.Flags().StringSliceVar(&scanIgnore, "ignore", nil, "Extra ignore patterns")
	scanCmd.Flags().StringVarP(&scanOutDir, "out", "o", "", "Export structured report to this directory")
	scanCmd.Flags().StringVar(&scanDBPath, "db", "", "SQLite run-history path (enables waivers and diffing)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Scan worker count (default NumCPU)")
	rootCmd.AddCommand(scanCmd)
}
