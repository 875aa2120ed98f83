package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sublingo/internal/config"
	"sublingo/internal/fileutil"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var outputDir string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "batch <video-or-directory>...",
		Short: "Run the subtitle pipeline over multiple videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(args, recursive)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no video files found in %s", strings.Join(args, ", "))
			}

			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			states, err := a.ProcessBatch(cmd.Context(), inputs, outputDir, flags.overrides(cmd))
			if err != nil {
				return err
			}

			failed := 0
			rows := make([][]string, 0, len(states))
			for _, state := range states {
				status := "ok"
				detail := state.FinalVideoPath
				if !state.Succeeded() {
					failed++
					status = "failed"
					detail = strings.Join(state.Errors, "; ")
				}
				rows = append(rows, []string{
					filepath.Base(state.InputVideoPath),
					status,
					detail,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Input", "Status", "Detail"},
				rows,
				nil,
			))
			fmt.Fprintf(out, "%d processed, %d failed\n", len(states)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d videos failed", failed, len(states))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for output videos")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recurse into subdirectories when an argument is a directory")
	flags.register(cmd)
	return cmd
}

// collectInputs expands directory arguments into their video files and
// passes file arguments through.
func collectInputs(args []string, recursive bool) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("inspect %q: %w", arg, err)
		}
		if info.IsDir() {
			found, err := fileutil.ListVideoFiles(path, recursive)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, found...)
			continue
		}
		inputs = append(inputs, path)
	}
	return inputs, nil
}
