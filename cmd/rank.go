package cmd

import (
	"bytes"
	"io"

	"github.com/adalundhe/txrank/core/source"
	"github.com/spf13/cobra"
)

// =============================================================================
// Rank Command Flags
// =============================================================================

var (
	rankHistoryPath string
	rankOrderPath   string
	rankCountsOut   string
	rankOutput      string
	rankReverse     bool
	rankJSON        bool
	rankLegacy      bool
	rankWindow      windowFlags
)

// =============================================================================
// Rank Command
// =============================================================================

// rankCmd represents the rank command.
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Count, match and correlate in one run",
	Long: `Run the whole pipeline: count onward transmissions in the history, list the
counts in the ranking's order, then compute Kendall's tau-b against the
count-sorted order.

Use --counts-out to keep the intermediate identity<TAB>count file.

Examples:
  txrank rank --history hist.tsv.gz --order ranking.txt
  txrank rank --history hist.tsv --order ranking.txt --lower 0 --upper 10 --reverse --counts-out matched.tsv`,
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankHistoryPath, "history", "H", "", historyUsage())
	rankCmd.Flags().StringVar(&rankOrderPath, "order", "", "Ranking file with one identity per line, or - for stdin")
	rankCmd.Flags().StringVar(&rankCountsOut, "counts-out", "", "Also write the ranked count file here")
	rankCmd.Flags().StringVarP(&rankOutput, "output", "o", "-", "Output file for the result, or - for stdout")
	rankWindow.register(rankCmd)
	registerResultFlags(rankCmd, &rankReverse, &rankJSON, &rankLegacy)
	_ = rankCmd.MarkFlagRequired("history")
	_ = rankCmd.MarkFlagRequired("order")
}

// runRank chains count, match and taub.
func runRank(cmd *cobra.Command, _ []string) error {
	if err := checkSingleStdin(rankHistoryPath, rankOrderPath); err != nil {
		return err
	}
	if err := checkSingleStdout(rankCountsOut, rankOutput); err != nil {
		return err
	}

	counts, err := countHistory(cmd, rankHistoryPath, rankWindow.resolve(cmd))
	if err != nil {
		return err
	}

	var matched bytes.Buffer
	if _, err := matchOrdering(cmd, counts, rankOrderPath, &matched); err != nil {
		return err
	}

	var result bytes.Buffer
	src := source.FromReader("matched counts", bytes.NewReader(matched.Bytes()))
	if _, err := correlate(src, &result, resolveReverse(cmd, rankReverse), rankJSON, rankLegacy); err != nil {
		return err
	}

	if rankCountsOut != "" {
		if err := writeOutput(cmd, rankCountsOut, func(w io.Writer) error {
			_, err := w.Write(matched.Bytes())
			return err
		}); err != nil {
			return err
		}
	}

	return writeOutput(cmd, rankOutput, func(w io.Writer) error {
		_, err := w.Write(result.Bytes())
		return err
	})
}
