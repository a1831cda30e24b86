package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

const version = "0.1.0"

// Exit codes form the CI contract: pass, gate fail, internal error.
const (
	exitPass     = 0
	exitGateFail = 1
	exitInternal = 2
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "avastscan",
	Short: "Rule-based static analysis for the five AVAST vulnerability categories",
	Long: `avastscan checks source trees against a declarative catalog of security
patterns (Authentication, Validation, Auditing, Secrets, Trust) and produces a
CI gate decision plus deterministic reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("avastscan %s (report schema %s)\n", version, model.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (optional)")
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "avastscan:", err)
		os.Exit(exitInternal)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "avastscan: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "avastscan: %s\n", msg)
	}
	os.Exit(exitInternal)
}
