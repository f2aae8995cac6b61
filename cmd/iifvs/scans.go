package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"iifvs/internal/config"
	"iifvs/internal/ui"
)

func newScansCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scans [id]",
		Short: "List past firmware analyses or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(config.Current())
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("scan history is disabled (store.type is none)")
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			var v any
			if len(args) == 1 {
				scan, err := store.GetScan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !asJSON {
					ui.RenderScan(out, scan)
					return nil
				}
				v = scan
			} else {
				if limit <= 0 {
					return fmt.Errorf("--limit must be positive, got %d", limit)
				}
				scans, err := store.ListScans(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if !asJSON {
					ui.RenderScans(out, scans)
					return nil
				}
				v = scans
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of scans to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
