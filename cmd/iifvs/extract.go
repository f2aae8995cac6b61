package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"iifvs/internal/config"
	"iifvs/internal/firmware"
	"iifvs/internal/ui"
)

func newExtractCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract <firmware>",
		Short: "Analyze a firmware image without starting the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open firmware: %w", err)
			}
			defer f.Close()

			a, err := newApp(config.Current(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.analyzer.Analyze(cmd.Context(), filepath.Base(args[0]), f)
			switch {
			case errors.Is(err, firmware.ErrToolNotFound):
				return fmt.Errorf("binwalk not found, install it with 'sudo apt install binwalk' or set extractor.mode=docker: %w", err)
			case err != nil:
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			ui.RenderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
