package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"iifvs/internal/config"
	"iifvs/internal/model"
	"iifvs/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		asJSON bool
		failOn string
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the NVD CVE database",
		Example: `  iifvs search "BusyBox v1.31.1"
  iifvs search openssl --fail-on high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold model.Severity
			if failOn != "" {
				var err error
				if threshold, err = model.ParseSeverity(failOn); err != nil {
					return err
				}
			}

			result, err := newNVDClient(config.Current()).Search(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				ui.RenderFindings(out, result.Keyword, result.TotalResults, result.Vulnerabilities)
			}

			if threshold == "" {
				return nil
			}
			n := 0
			for _, f := range result.Vulnerabilities {
				if f.Severity.Rank() >= threshold.Rank() {
					n++
				}
			}
			if n > 0 {
				return fmt.Errorf("%d findings at or above %s", n, threshold)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when a finding is at or above this severity (low, medium, high, critical)")
	return cmd
}
