package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var outputPath string

	cmd := &cobra.Command{
		Use:   "subtitles <video>",
		Short: "Generate a bilingual SRT without muxing it into the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			state, destination, err := a.GenerateSubtitles(cmd.Context(), args[0], outputPath, flags.overrides(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRunSummary(out, state)
			if !state.Succeeded() {
				return fmt.Errorf("subtitle generation failed: %s", strings.Join(state.Errors, "; "))
			}
			fmt.Fprintf(out, "Subtitles written to %s\n", destination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination SRT path")
	flags.register(cmd)
	return cmd
}
