package cmd

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/adalundhe/txrank/core/order"
	"github.com/adalundhe/txrank/core/transmission"
	"github.com/spf13/cobra"
)

// =============================================================================
// Match Command Flags
// =============================================================================

var (
	matchHistoryPath string
	matchOrderPath   string
	matchOutput      string
	matchWindow      windowFlags
)

// =============================================================================
// Match Command
// =============================================================================

// matchCmd represents the match command.
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "List infector counts in the order of a ranking",
	Long: `Count onward transmissions and write identity<TAB>count for each individual
of a ranking file, keeping the ranking's order.

The ranking has one identity per line. Identities that never infected anyone in
the window are reported on stderr and left out of the output.

Examples:
  txrank match --history hist.tsv.gz --order ranking.txt -o matched.tsv
  txrank match --history hist.tsv --order ranking.txt --lower 0 --upper 10`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVarP(&matchHistoryPath, "history", "H", "", historyUsage())
	matchCmd.Flags().StringVar(&matchOrderPath, "order", "", "Ranking file with one identity per line, or - for stdin")
	matchCmd.Flags().StringVarP(&matchOutput, "output", "o", "-", "Output file, or - for stdout")
	matchWindow.register(matchCmd)
	_ = matchCmd.MarkFlagRequired("history")
	_ = matchCmd.MarkFlagRequired("order")
}

// runMatch writes the ranking's counts.
func runMatch(cmd *cobra.Command, _ []string) error {
	if err := checkSingleStdin(matchHistoryPath, matchOrderPath); err != nil {
		return err
	}

	counts, err := countHistory(cmd, matchHistoryPath, matchWindow.resolve(cmd))
	if err != nil {
		return err
	}

	var matched bytes.Buffer
	if _, err := matchOrdering(cmd, counts, matchOrderPath, &matched); err != nil {
		return err
	}

	return writeOutput(cmd, matchOutput, func(w io.Writer) error {
		_, err := w.Write(matched.Bytes())
		return err
	})
}

// matchOrdering runs the matcher over the ranking at path and summarizes
// unmatched identities.
func matchOrdering(cmd *cobra.Command, counts *transmission.CountMap, path string, sink io.Writer) (order.MatchReport, error) {
	src, err := openInput(cmd, path)
	if err != nil {
		return order.MatchReport{}, err
	}
	defer src.Close()

	report, err := order.MatchInfectorCounts(counts, src, sink, logger)
	if err != nil {
		return order.MatchReport{}, err
	}
	if err := settle(report.UnmatchedError(), "ranking contains individuals without transmissions",
		slog.Int("matched", len(report.Matched)),
		slog.Int("unmatched", len(report.Unmatched))); err != nil {
		return order.MatchReport{}, err
	}
	return report, nil
}
