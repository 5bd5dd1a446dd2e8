/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize marcstream configuration",
	Long: `Initialize the marcstream configuration file with a generated
client API key and the default extraction fields.

Examples:
  marcstream init
  marcstream init --config ./marcstream.yaml --data-dir ./data`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s (use --force to overwrite)\n", configPath)
			os.Exit(1)
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			cmd.Printf("Error bootstrapping config: %v\n", err)
			os.Exit(1)
		}

		cmd.Printf("Configuration written to %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("Client API key: %s\n", cfg.Security.ClientAPIKey)
		cmd.Printf("Indexed fields: %d\n", len(cfg.Fields))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("data-dir", "d", "", "Data directory for the record store")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}
