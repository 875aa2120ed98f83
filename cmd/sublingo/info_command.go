package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sublingo/internal/deps"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show configuration, external tools, and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			cfg := a.Config()

			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"Device", a.Device()},
					{"Source language", valueOrAuto(cfg.Languages.Source)},
					{"Target language", cfg.Languages.Target},
					{"TTS", yesNo(cfg.Pipeline.EnableTTS)},
					{"Term processing", yesNo(cfg.Pipeline.EnableTermProcessing)},
					{"Output format", cfg.Pipeline.OutputFormat},
					{"Data directory", cfg.Paths.DataDir},
				},
				nil,
			))

			statuses := deps.CheckBinaries(deps.ForConfig(&cfg))
			depRows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				availability := "missing"
				if st.Available {
					availability = "found"
				} else if st.Optional {
					availability = "missing (optional)"
				}
				detail := st.Detail
				if st.Available {
					detail = st.Command
				}
				depRows = append(depRows, []string{st.Name, availability, detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Status", "Detail"},
				depRows,
				nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				names := make([]string, len(missing))
				for i, st := range missing {
					names[i] = st.Name
				}
				fmt.Fprintf(out, "Missing required tools: %s\n", strings.Join(names, ", "))
			}

			store := a.History()
			if store == nil {
				fmt.Fprintln(out, "Run history is unavailable")
				return nil
			}
			records, err := store.ListRuns(cmd.Context(), runLimit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			runRows := make([][]string, 0, len(records))
			for _, rec := range records {
				outcome := "ok"
				if !rec.Succeeded {
					outcome = "failed"
				}
				runRows = append(runRows, []string{
					rec.StartedAt.Local().Format("2006-01-02 15:04"),
					rec.InputPath,
					outcome,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Input", "Outcome"},
				runRows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 10, "Number of recent runs to show")
	return cmd
}

func valueOrAuto(value string) string {
	if strings.TrimSpace(value) == "" {
		return "auto-detect"
	}
	return value
}
