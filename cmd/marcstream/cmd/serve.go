/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/api"
	"github.com/ssargent/marcstream/pkg/index"
	"github.com/ssargent/marcstream/pkg/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the marcstream REST API server.

The server ingests MARC-21 transmission files, serves JSON and raw
renderings of stored records, runs pattern extractions, and answers
value lookups against the configured extraction indexes.

Examples:
  marcstream serve --api-key=mysecretkey --port=8080
  marcstream serve --config ./marcstream.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOrDefaultConfig(cmd)
		if err != nil {
			return err
		}

		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
			cfg.Bind = bind
		}
		if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
			cfg.Security.ClientAPIKey = apiKey
		}
		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cfg.Security.ClientAPIKey == "" || cfg.Security.ClientAPIKey == "auto" {
			cmd.Println("Error: an API key is required; pass --api-key or run 'marcstream init' first")
			return nil
		}

		store, err := storage.NewRecordStore(filepath.Join(cfg.DataDir, "records"))
		if err != nil {
			return err
		}
		defer store.Close()

		fields, err := compileFields(cfg)
		if err != nil {
			return err
		}
		manager := index.NewManager(store.DB(), fields)

		forceUTF8, _ := cmd.Root().PersistentFlags().GetBool("force-utf8")
		skipErrors, _ := cmd.Root().PersistentFlags().GetBool("skip-errors")
		serverConfig := api.ServerConfig{
			Bind:        cfg.Bind,
			Port:        cfg.Port,
			APIKey:      cfg.Security.ClientAPIKey,
			DataDir:     cfg.DataDir,
			ForceUTF8:   forceUTF8 || cfg.Parse.ForceUTF8,
			SkipOnError: skipErrors || cfg.Parse.SkipOnError,
		}

		return api.StartServer(store, manager, serverConfig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serveCmd.Flags().String("bind", "", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for client authentication")
	serveCmd.Flags().StringP("data-dir", "d", "", "Data directory for the record store")
}
