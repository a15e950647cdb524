package main

import (
	"github.com/spf13/cobra"

	"github.com/hackgods/hospital-management-system/internal/config"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hms",
		Short:         "Hospital management system",
		Long:          "Console hospital management: appointment scheduling, consultation outcomes, prescriptions and medicine stock, kept in CSV tables.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Overrides HMS_DATA_DIR for every command.
	root.PersistentFlags().String("data-dir", "", "directory holding the CSV tables")

	root.AddCommand(newConsoleCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newSeedCommand())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	dir, err := cmd.Root().PersistentFlags().GetString("data-dir")
	if err != nil {
		return config.Config{}, err
	}
	if dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}
