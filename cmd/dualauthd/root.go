package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the dualauthd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dualauthd",
		Short: "dualauthd - cookie session and JWT authentication service",
		Long: `dualauthd authenticates users by password and issues either a
server-side session (cookie scheme) or a signed token (jwt scheme), then
authorizes protected requests carrying either artifact.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashCmd())
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewLoadtestCmd())
	cmd.AddCommand(NewBenchcheckCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dualauthd version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := cmd.Root().Version
			if v == "" {
				v = version
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dualauthd "+v)
			return nil
		},
	}
}
