package cli

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/api"
	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

var (
	serveAddr   string
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run-history API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil {
			fatal("config load failed", err)
		}
		logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		if serveAddr == "" {
			serveAddr = cfg.API.Addr
		}
		if serveDBPath == "" {
			serveDBPath = cfg.Database.DSN
		}
		if serveDBPath == "" {
			fatal("serve: --db (or database.dsn in config) is required", nil)
		}

		sessDur, err := time.ParseDuration(cfg.API.SessionDuration)
		if err != nil {
			fatal("invalid api.session_duration", err)
		}

		cat, err := catalog.Load(cfg.Scan.RulePacks...)
		if err != nil {
			fatal("catalog load failed", err)
		}

		db, err := storage.OpenSQLite(serveDBPath)
		if err != nil {
			fatal("db open failed", err)
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			fatal("db schema failed", err)
		}

		srv := &api.Server{
			DB:              db,
			UserStore:       db,
			Catalog:         cat,
			Logger:          logger,
			SessionDuration: sessDur,
		}
		logger.Info("api listening", "addr", serveAddr, "db", serveDBPath)
		if err := http.ListenAndServe(serveAddr, srv.Routes()); err != nil {
			fatal("server stopped", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :8787)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "SQLite run-history path")
	rootCmd.AddCommand(serveCmd)
}
