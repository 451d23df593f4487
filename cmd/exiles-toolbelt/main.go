// cmd/exiles-toolbelt/main.go - CLI front end for the curated tool installer.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/exileshud/toolbelt/pkg/config"
	"github.com/exileshud/toolbelt/pkg/logging"
	"github.com/exileshud/toolbelt/pkg/version"
)

var (
	cfgPath     string
	catalogPath string
	verbose     bool

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:     "exiles-toolbelt",
	Short:   "Install curated third-party tools for Elite Dangerous, Star Citizen and EVE Online",
	Version: version.Current().String(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.LoadSettings(cfgPath)
		if err != nil {
			return err
		}
		if catalogPath != "" {
			settings.CatalogPath = catalogPath
		}
		level := settings.LogLevel
		if verbose {
			level = "debug"
		}
		return logging.Init(level, settings.LogPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "path to the settings file")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to the app catalog (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
