package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/security"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
	"github.com/CEA-Brad/avast-toolkit/internal/storage"
)

var (
	userName     string
	userPassword string
	userRole     string
	userDBPath   string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an API user",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil {
			fatal("config load failed", err)
		}
		shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		if userDBPath == "" {
			userDBPath = cfg.Database.DSN
		}
		if userName == "" || userPassword == "" {
			fatal("user add: --username and --password are required", nil)
		}
		if userDBPath == "" {
			fatal("user add: --db (or database.dsn in config) is required", nil)
		}
		if userRole != "admin" && userRole != "viewer" {
			fatal("user add: --role must be admin or viewer", nil)
		}

		db, err := storage.OpenSQLite(userDBPath)
		if err != nil {
			fatal("db open failed", err)
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			fatal("db schema failed", err)
		}

		hash, err := security.HashPassword(userPassword)
		if err != nil {
			fatal("password hash failed", err)
		}
		id, err := db.CreateUser(userName, hash, userRole)
		if err != nil {
			fatal("create user failed", err)
		}
		fmt.Printf("User created\n  ID: %d\n  Username: %s\n  Role: %s\n", id, userName, userRole)
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "username", "", "Username")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password")
	userAddCmd.Flags().StringVar(&userRole, "role", "viewer", "Role (admin|viewer)")
	userAddCmd.Flags().StringVar(&userDBPath, "db", "", "SQLite run-history path")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
