package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "simctl",
		Short:         "Warehouse slotting simulator",
		Long:          "Simulates slotting strategies over a warehouse fixture, seeds the PostgreSQL store and issues API tokens.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}

// logger writes JSON logs to w so that stdout stays machine readable
func (o *rootOptions) logger(w io.Writer) *logging.Logger {
	config := logging.DefaultConfig("simctl")
	config.Level = logging.ParseLevel(o.logLevel)
	config.Output = w
	return logging.New(config)
}
