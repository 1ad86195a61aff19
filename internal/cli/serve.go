// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biostore/internal/server"
)

func newServeCmd(cfg *Config) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the method boundary over local HTTP",
		Long: `Serve the method boundary at POST /api/v1/methods/{method} with
health and metrics endpoints, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				c.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				c.Server.Port = port
			}

			srv, err := server.New(c, cfg.Options)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				_ = srv.Shutdown()
				return err
			}
			_ = cfg.Printer(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Listening on %s", srv.Addr()))

			select {
			case <-contextOf(cmd).Done():
				return srv.Shutdown()
			case err := <-srv.Errors():
				_ = srv.Shutdown()
				return err
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}
