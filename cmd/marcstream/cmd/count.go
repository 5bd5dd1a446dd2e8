package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count <file>",
	Short: "Count the records in a MARC-21 file",
	Long: `Count the records in a MARC-21 file.

Example:
  marcstream count records.mrc
  marcstream count --skip-errors dirty.mrc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		count := 0
		for reader.Next() {
			if reader.Record() != nil {
				count++
			}
		}
		if err := reader.Err(); err != nil {
			return err
		}

		fmt.Printf("%d record(s)\n", count)
		if skipped := len(reader.Errs()); skipped > 0 {
			fmt.Printf("%d record(s) skipped\n", skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
