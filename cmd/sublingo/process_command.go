package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sublingo/internal/agent"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var outputPath string
	var workDir string

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Run the full subtitle pipeline on one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.ProcessVideo(cmd.Context(), agent.ProcessOptions{
				InputPath:  args[0],
				OutputPath: outputPath,
				WorkingDir: workDir,
				Overrides:  flags.overrides(cmd),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRunSummary(out, state)
			if !state.Succeeded() {
				return fmt.Errorf("processing failed: %s", strings.Join(state.Errors, "; "))
			}
			fmt.Fprintf(out, "Output written to %s\n", state.FinalVideoPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output video path")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Working directory for intermediate artifacts (kept after the run)")
	flags.register(cmd)
	return cmd
}
