package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/utils"
)

var (
	exit       = os.Exit
	configPath string
	debug      bool
)

// NewRootCmd creates the root 'scriptflow' command with persistent flags and subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scriptflow",
		Short: "Turn conversation scripts into positioned flow diagrams",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.ConfigFileName, "Path to scriptflow config JSON")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if debug {
			utils.SetMode("debug")
		}
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newParseCmd(),
		newLayoutCmd(),
		newGraphCmd(),
		newDrawCmd(),
		newMCPCmd(),
	)
	return rootCmd
}

// loadConfig reads the config named by --config, falling back to defaults
// when the file is missing. A log level in the file applies unless --debug
// was given.
func loadConfig() *config.Config {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		utils.Error("Failed to load config %s: %v", configPath, err)
		exit(2)
		return nil
	}
	if !debug && cfg.Log.Level != "" {
		utils.SetMode(cfg.Log.Level)
	}
	return cfg
}
