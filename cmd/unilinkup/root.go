package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/unilinkup/core/buildinfo"
	corecmd "github.com/m3rciful/unilinkup/core/cmd"
	"github.com/m3rciful/unilinkup/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	runE := func(_ *cobra.Command, _ []string) error {
		return corecmd.Run(corecmd.Options{
			ConfigPath:        configPath,
			DefaultConfigPath: defaultConfigPath,
			LoadConfig:        app.LoadConfig,
			Bootstrap:         app.Bootstrap,
		})
	}

	rootCmd := &cobra.Command{
		Use:           "unilinkup",
		Short:         "UniLinkUp: organize campus lunch and study meetups on Telegram",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runE,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		loadDotEnv(cmd)
		return nil
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (defaults to $CONFIG_PATH, then "+defaultConfigPath+")")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bot until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runE,
		},
		newSnapshotCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadDotEnv reads .env from the working directory. A missing file is normal;
// anything else is reported and ignored.
func loadDotEnv(cmd *cobra.Command) {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "unilinkup: .env not loaded: %v\n", err)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "unilinkup %s (commit %s, built %s)\n",
				buildinfo.Version, buildinfo.Commit, buildDate())
			return err
		},
	}
}

func buildDate() string {
	if buildinfo.Date == "" {
		return "unknown"
	}
	return buildinfo.Date
}
