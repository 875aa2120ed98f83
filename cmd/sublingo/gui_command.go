package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sublingo/internal/gui"
)

func newGUICommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Serve the local JSON API for GUI front ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			srv, err := gui.NewServer(bind, a, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (press Ctrl-C to stop)\n", srv.Addr())

			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1:8211", "Address to listen on")
	return cmd
}
