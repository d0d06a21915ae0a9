package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Local sync agent for the storefront",
		Long: `storefront runs a local sync daemon that mirrors the remote storefront
session and cart onto disk, replays writes that happened while offline,
and exposes a small HTTP API on localhost for UI surfaces.

Start the daemon with 'storefront serve'; the other commands talk to a
running daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")

	root.AddCommand(
		newServeCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newSessionCommand(),
		newCartCommand(),
		newProductsCommand(),
		newNotificationsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
