package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured model keys",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cfg.Models) == 0 {
		fmt.Fprintln(out, "No models configured.")
		return nil
	}

	keys := make([]string, 0, len(cfg.Models))
	for k := range cfg.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PROVIDER: %s\tENDPOINT: %s\t\n", cfg.Provider, endpointOrDefault(cfg.APIEndpoint))
	fmt.Fprintln(w, "KEY\tMODEL\t")
	fmt.Fprintln(w, "---\t-----\t")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t\n", k, cfg.Models[k])
	}
	return w.Flush()
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "(provider default)"
	}
	return endpoint
}
