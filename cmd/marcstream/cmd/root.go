/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/stream"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marcstream",
	Short: "marcstream - MARC-21 streaming toolkit",
	Long: `marcstream reads MARC-21 bibliographic files as lazy record
streams and answers Traject-style pattern queries against them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("force-utf8", false, "Decode every record as UTF-8 regardless of leader byte 9")
	rootCmd.PersistentFlags().Bool("skip-errors", false, "Skip records that fail to decode instead of stopping")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
}

// openReader opens a MARC file honoring the persistent parse flags.
func openReader(cmd *cobra.Command, path string) (*stream.RecordReader, error) {
	forceUTF8, _ := cmd.Root().PersistentFlags().GetBool("force-utf8")
	skipErrors, _ := cmd.Root().PersistentFlags().GetBool("skip-errors")
	return stream.OpenReader(stream.ReaderConfig{
		FilePath:    path,
		ForceUTF8:   forceUTF8,
		SkipOnError: skipErrors,
	})
}
