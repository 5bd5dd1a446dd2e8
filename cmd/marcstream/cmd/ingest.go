package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/config"
	"github.com/ssargent/marcstream/pkg/index"
	"github.com/ssargent/marcstream/pkg/storage"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Load a MARC-21 file into the record store",
	Long: `Load a MARC-21 file into the local record store, indexing the
extraction fields defined in the configuration.

Examples:
  marcstream ingest records.mrc
  marcstream ingest --data-dir ./data --skip-errors records.mrc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		cfg, err := loadOrDefaultConfig(cmd)
		if err != nil {
			return err
		}

		store, err := storage.NewRecordStore(filepath.Join(dataDir, "records"))
		if err != nil {
			return err
		}
		defer store.Close()

		fields, err := compileFields(cfg)
		if err != nil {
			return err
		}
		manager := index.NewManager(store.DB(), fields)

		reader, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		ingested := 0
		warned := 0
		for reader.Next() {
			record := reader.Record()
			if record == nil {
				continue
			}
			id, err := store.Create(record)
			if err != nil {
				return err
			}
			if err := manager.IndexRecord(*id, record); err != nil {
				return err
			}
			ingested++
			warned += len(record.Warnings())
		}
		if err := reader.Err(); err != nil {
			return err
		}

		fmt.Printf("Ingested %d record(s) into %s\n", ingested, dataDir)
		if warned > 0 {
			fmt.Printf("%d parse warning(s)\n", warned)
		}
		if skipped := len(reader.Errs()); skipped > 0 {
			fmt.Printf("%d record(s) skipped\n", skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("data-dir", "d", "./data", "Data directory for the record store")
}

// loadOrDefaultConfig loads the configured (or default-path) config
// file, falling back to the built-in defaults when none exists.
func loadOrDefaultConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if !config.ConfigExists(configPath) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

// compileFields builds the index field set from the config.
func compileFields(cfg *config.Config) ([]index.Field, error) {
	fields := make([]index.Field, 0, len(cfg.Fields))
	for _, fc := range cfg.Fields {
		plan, err := fc.Compile()
		if err != nil {
			return nil, err
		}
		fields = append(fields, index.Field{Name: fc.Name, Plan: plan})
	}
	return fields, nil
}
