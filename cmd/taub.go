package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/adalundhe/txrank/core/correlation"
	"github.com/adalundhe/txrank/core/source"
	"github.com/spf13/cobra"
)

// =============================================================================
// TauB Command Flags
// =============================================================================

var (
	taubCountsPath string
	taubOutput     string
	taubReverse    bool
	taubJSON       bool
	taubLegacy     bool
)

// =============================================================================
// TauB Command
// =============================================================================

// taubCmd represents the taub command.
var taubCmd = &cobra.Command{
	Use:   "taub",
	Short: "Correlate a ranked count file with its count-sorted order",
	Long: `Compute Kendall's tau-b between the counts of a ranked count file, in file
order, and the same counts sorted ascending (or descending with --reverse).

The count file has one identity<TAB>count line per individual, as written by
"txrank match". Output is tau<TAB>p-value. Fewer than two rows, or rows that
all share one count, leave tau-b undefined and print NaN<TAB>NaN.

Examples:
  txrank taub --counts matched.tsv
  txrank taub --counts matched.tsv --reverse --json
  txrank match --history h.tsv --order r.txt | txrank taub --counts -`,
	RunE: runTauB,
}

func init() {
	rootCmd.AddCommand(taubCmd)

	taubCmd.Flags().StringVarP(&taubCountsPath, "counts", "c", "", "Ranked count file, or - for stdin")
	taubCmd.Flags().StringVarP(&taubOutput, "output", "o", "-", "Output file, or - for stdout")
	registerResultFlags(taubCmd, &taubReverse, &taubJSON, &taubLegacy)
	_ = taubCmd.MarkFlagRequired("counts")
}

func registerResultFlags(cmd *cobra.Command, reverse, asJSON, legacy *bool) {
	cmd.Flags().BoolVar(reverse, "reverse", false, "Compare against counts sorted descending (default from config: false)")
	cmd.Flags().BoolVar(asJSON, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(legacy, "legacy-format", false, "Truncate tau and p-value to integers (legacy output)")
	cmd.MarkFlagsMutuallyExclusive("json", "legacy-format")
}

// runTauB writes the correlation result for a ranked count file.
func runTauB(cmd *cobra.Command, _ []string) error {
	src, err := openInput(cmd, taubCountsPath)
	if err != nil {
		return err
	}
	defer src.Close()

	var out bytes.Buffer
	if _, err := correlate(src, &out, resolveReverse(cmd, taubReverse), taubJSON, taubLegacy); err != nil {
		return err
	}

	return writeOutput(cmd, taubOutput, func(w io.Writer) error {
		_, err := w.Write(out.Bytes())
		return err
	})
}

// correlate scores src and renders the result to sink in the requested format.
func correlate(src source.LineSource, sink io.Writer, reverse, asJSON, legacy bool) (correlation.Result, error) {
	correlator := correlation.NewCorrelator(correlation.KendallTauB{}, logger)

	var res correlation.Result
	var err error
	switch {
	case asJSON || legacy:
		var counts []int
		if counts, err = correlation.ReadCounts(src); err != nil {
			return res, err
		}
		if res, err = correlator.Compare(counts, reverse); err != nil {
			return res, err
		}
		err = renderResult(sink, res, asJSON)
	default:
		res, err = correlator.CalculateTauB(src, sink, reverse)
	}
	if err != nil {
		return res, err
	}
	if err := settle(res.Err(), "tau-b is undefined for this input",
		slog.String("source", src.Name()),
		slog.String("reason", res.Reason)); err != nil {
		return res, err
	}

	logger.Debug("tau-b computed",
		slog.String("source", src.Name()),
		slog.Int("n", res.N),
		slog.String("method", string(res.Method)),
		slog.Bool("reverse", reverse))
	return res, nil
}

func renderResult(w io.Writer, res correlation.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(w, res.LegacyLine())
	return err
}
