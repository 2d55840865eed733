package cmd

import (
	"io"

	"github.com/adalundhe/txrank/core/transmission"
	"github.com/spf13/cobra"
)

// =============================================================================
// Count Command Flags
// =============================================================================

var (
	countHistoryPath string
	countOutput      string
	countWindow      windowFlags
)

// =============================================================================
// Count Command
// =============================================================================

// countCmd represents the count command.
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count onward transmissions per infector",
	Long: `Count how many onward transmissions each infector caused within a time window.

The history has one record per line: infector<TAB>infectee<TAB>time. Files ending
in .gz are decompressed. Records whose infector or infectee is "None" are not
transmissions and are skipped. Output is identity<TAB>count sorted by identity.

Examples:
  txrank count --history hist.tsv.gz
  txrank count --history hist.tsv --lower 2000 --upper 2010 -o counts.tsv
  zcat hist.tsv.gz | txrank count --history -`,
	RunE: runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)

	countCmd.Flags().StringVarP(&countHistoryPath, "history", "H", "", historyUsage())
	countCmd.Flags().StringVarP(&countOutput, "output", "o", "-", "Output file, or - for stdout")
	countWindow.register(countCmd)
	_ = countCmd.MarkFlagRequired("history")
}

// runCount writes the full count mapping.
func runCount(cmd *cobra.Command, _ []string) error {
	counts, err := countHistory(cmd, countHistoryPath, countWindow.resolve(cmd))
	if err != nil {
		return err
	}

	return writeOutput(cmd, countOutput, func(w io.Writer) error {
		return transmission.WriteCounts(counts, w)
	})
}
