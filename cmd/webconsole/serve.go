package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/webconsole/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger := a.logger(cfg, cmd)
			slog.SetDefault(logger)

			if err := server.Run(cfg, logger); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	return cmd
}
