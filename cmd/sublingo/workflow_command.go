package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorkflowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow",
		Short: "Print the pipeline step graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), a.RenderWorkflow())
			return nil
		},
	}
}
