package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sartorproj/salescast/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		srv := server.New(a.cfg.Server, a.session, a.metrics, a.logger)
		return srv.Run(cmd.Context())
	},
}

var shopsCmd = &cobra.Command{
	Use:   "shops",
	Short: "List shops with enough records to analyse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		shops, err := a.session.Shops(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range shops {
			fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", s.ID, s.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, shopsCmd)
}
