package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/marc"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the records of a MARC-21 file in line format",
	Long: `Print the records of a MARC-21 file in a human-readable line
format, one field per line.

Example:
  marcstream dump records.mrc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		for reader.Next() {
			record := reader.Record()
			if record == nil {
				continue
			}
			fmt.Print(formatRecord(record))
			fmt.Println()
		}
		if err := reader.Err(); err != nil {
			return err
		}
		for _, err := range reader.Errs() {
			fmt.Printf("skipped: %v\n", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

// formatRecord renders a record in line format: the leader, then one
// line per field with indicators and $-prefixed subfields.
func formatRecord(record *marc.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LDR %s\n", record.Leader())
	for _, f := range record.GetFields("") {
		switch field := f.(type) {
		case *marc.ControlField:
			fmt.Fprintf(&b, "%s %s\n", field.Tag(), field.Data)
		case *marc.DataField:
			fmt.Fprintf(&b, "%s %c%c", field.Tag(), field.Indicator1, field.Indicator2)
			for _, sf := range field.Subfields('*') {
				fmt.Fprintf(&b, " $%c%s", sf.Code, sf.Data)
			}
			b.WriteByte('\n')
		}
	}
	for _, warning := range record.Warnings() {
		fmt.Fprintf(&b, "WARN %s\n", warning)
	}
	return b.String()
}
