package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CEA-Brad/avast-toolkit/internal/catalog"
	"github.com/CEA-Brad/avast-toolkit/internal/model"
	"github.com/CEA-Brad/avast-toolkit/internal/shared"
)

var rulesPacks []string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the effective rule catalog",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := shared.LoadConfig(configPath)
		if err != nil {
			fatal("config load failed", err)
		}
		shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

		if len(rulesPacks) == 0 {
			rulesPacks = cfg.Scan.RulePacks
		}
		cat, err := catalog.Load(rulesPacks...)
		if err != nil {
			fatal("catalog load failed", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tSEVERITY\tLANGUAGES\tMESSAGE")
		for _, r := range cat.Rules() {
			langs := "all"
			if len(r.Languages) > 0 {
				langs = ""
				for _, l := range sortedLangs(r.Languages) {
					if langs != "" {
						langs += ","
					}
					langs += string(l)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Severity, langs, r.Message)
		}
		w.Flush()
	},
}

func sortedLangs(m map[model.Language]bool) []model.Language {
	out := make([]model.Language, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func init() {
	rulesCmd.Flags().StringSliceVar(&rulesPacks, "rules", nil, "Extra rule pack paths")
	rootCmd.AddCommand(rulesCmd)
}
