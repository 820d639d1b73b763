package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reactagent/internal/audit"
	"reactagent/internal/render"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List saved runs or show one of them.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		if len(args) == 1 {
			report, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			return printReport(out, report, historyJSON)
		}

		runs, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(out, runs)
		}
		fmt.Fprintln(out, render.RunTable(runs))
		return nil
	},
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
}
