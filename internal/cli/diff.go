package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/reporting"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

var (
	diffBase   string
	diffHead   string
	diffDBPath string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare findings between two stored runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil {
			fatal("config load failed", err)
		}
		shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		if diffDBPath == "" {
			diffDBPath = cfg.Database.DSN
		}
		if diffBase == "" || diffHead == "" {
			fatal("diff: --base and --head are required", nil)
		}
		if diffDBPath == "" {
			fatal("diff: --db (or database.dsn in config) is required", nil)
		}

		db, err := storage.OpenSQLite(diffDBPath)
		if err != nil {
			fatal("db open failed", err)
		}
		defer db.Close()

		br, err := db.LoadRun(diffBase)
		if err != nil {
			fatal("load base run failed", err)
		}
		hr, err := db.LoadRun(diffHead)
		if err != nil {
			fatal("load head run failed", err)
		}

		out, err := reporting.EmitDiff(reporting.Diff(&br, &hr))
		if err != nil {
			fatal("diff failed", err)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffBase, "base", "", "Base run id")
	diffCmd.Flags().StringVar(&diffHead, "head", "", "Head run id")
	diffCmd.Flags().StringVar(&diffDBPath, "db", "", "SQLite run-history path")
	rootCmd.AddCommand(diffCmd)
}
