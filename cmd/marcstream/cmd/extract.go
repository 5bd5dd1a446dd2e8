package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/extract"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <pattern> <file>",
	Short: "Run a field pattern against every record of a MARC-21 file",
	Long: `Run a Traject-style field pattern against every record of a
MARC-21 file and print the extracted values, one per line.

Examples:
  marcstream extract 245a records.mrc
  marcstream extract "100a:700a" --trim-punctuation records.mrc
  marcstream extract "270|1*|b" records.mrc`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		options, err := extractOptions(cmd)
		if err != nil {
			return err
		}
		plan, err := extract.New(args[0], options)
		if err != nil {
			return err
		}

		reader, err := openReader(cmd, args[1])
		if err != nil {
			return err
		}
		defer reader.Close()

		for reader.Next() {
			record := reader.Record()
			if record == nil {
				continue
			}
			for _, value := range plan.Extract(record) {
				fmt.Println(value)
			}
		}
		return reader.Err()
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Bool("first", false, "Return only the first value per record")
	extractCmd.Flags().Bool("trim-punctuation", false, "Trim common cataloging punctuation from values")
	extractCmd.Flags().Bool("allow-duplicates", false, "Keep repeated values")
	extractCmd.Flags().String("default", "", "Value to emit when a record yields nothing")
	extractCmd.Flags().String("separator", "", "Join each field's values with this separator")
	extractCmd.Flags().String("alternate", "include", "Linked 880 handling: include, dont_include, or only")
}

// extractOptions builds extractor options from the command's flags.
func extractOptions(cmd *cobra.Command) (extract.Options, error) {
	options := extract.Options{}
	options.First, _ = cmd.Flags().GetBool("first")
	options.TrimPunctuation, _ = cmd.Flags().GetBool("trim-punctuation")
	options.AllowDuplicates, _ = cmd.Flags().GetBool("allow-duplicates")
	options.Default, _ = cmd.Flags().GetString("default")
	options.Separator, _ = cmd.Flags().GetString("separator")

	alternate, _ := cmd.Flags().GetString("alternate")
	switch alternate {
	case "", "include":
		options.Alternate = extract.Include
	case "dont_include":
		options.Alternate = extract.DontInclude
	case "only":
		options.Alternate = extract.Only
	default:
		return extract.Options{}, fmt.Errorf("unknown alternate value %q", alternate)
	}
	return options, nil
}
