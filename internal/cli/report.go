package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/reporting"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

var (
	reportRunID  string
	reportFormat string
	reportDBPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-emit a stored run from the history database",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil {
			fatal("config load failed", err)
		}
		shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		if reportFormat == "" {
			reportFormat = cfg.Reporting.Format
		}
		if reportDBPath == "" {
			reportDBPath = cfg.Database.DSN
		}
		if reportDBPath == "" {
			fatal("report: --db (or database.dsn in config) is required", nil)
		}

		format, err := reporting.ParseFormat(reportFormat)
		if err != nil {
			fatal("invalid --format", err)
		}

		db, err := storage.OpenSQLite(reportDBPath)
		if err != nil {
			fatal("db open failed", err)
		}
		defer db.Close()

		run, err := loadRunOrLatest(db, reportRunID)
		if err != nil {
			fatal("load run failed", err)
		}
		out, err := reporting.Emit(&run, format)
		if err != nil {
			fatal("report failed", err)
		}
		os.Stdout.Write(out)
	},
}

func loadRunOrLatest(db *storage.DB, id string) (model.ScanRun, error) {
	if id == "" {
		return db.LoadLatestRun()
	}
	return db.LoadRun(id)
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "Run id (default: latest)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "Report format (structured|human)")
	reportCmd.Flags().StringVar(&reportDBPath, "db", "", "SQLite run-history path")
	rootCmd.AddCommand(reportCmd)
}
