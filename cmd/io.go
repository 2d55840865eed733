package cmd

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/adalundhe/txrank/core/source"
	"github.com/adalundhe/txrank/core/storage"
	"github.com/adalundhe/txrank/core/transmission"
	"github.com/spf13/cobra"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

// =============================================================================
// Shared Flags
// =============================================================================

// windowFlags holds --lower/--upper for commands that read a history.
type windowFlags struct {
	lower float64
	upper float64
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lower, "lower", 0, "Lower bound of the transmission window, inclusive (default from config: -Inf)")
	cmd.Flags().Float64Var(&f.upper, "upper", 0, "Upper bound of the transmission window, inclusive (default from config: +Inf)")
}

// resolve combines explicitly set flags with the configured window.
func (f *windowFlags) resolve(cmd *cobra.Command) transmission.Window {
	w := transmission.Window{Lower: activeConfig.Window.Lower, Upper: activeConfig.Window.Upper}
	if cmd.Flags().Changed("lower") {
		w.Lower = f.lower
	}
	if cmd.Flags().Changed("upper") {
		w.Upper = f.upper
	}
	return w
}

// resolveReverse prefers an explicit --reverse over the configured default.
func resolveReverse(cmd *cobra.Command, flagValue bool) bool {
	if cmd.Flags().Changed("reverse") {
		return flagValue
	}
	return activeConfig.Correlate.Reverse
}

// =============================================================================
// Input / Output
// =============================================================================

// openInput opens path, or the command's stdin for "-".
func openInput(cmd *cobra.Command, path string) (source.LineSource, error) {
	if path == "" {
		return nil, txerrors.NewKindError(txerrors.KindInvalidInput, "input path is empty", nil)
	}
	return source.Open(path, cmd.InOrStdin())
}

// writeOutput runs write against path, or stdout for "-". Nothing reaches the
// destination unless write succeeds.
func writeOutput(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "" || path == source.StdioName {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return err
		}
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := storage.WriteFileAtomic(path, write); err != nil {
		return txerrors.WrapWithKind(txerrors.KindIO, "write "+path, err)
	}
	return nil
}

// countHistory runs the counting pass over the history at path.
func countHistory(cmd *cobra.Command, path string, w transmission.Window) (*transmission.CountMap, error) {
	src, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	counts, _, err := transmission.NewCounter(logger).Count(src, w)
	return counts, err
}

func checkSingleStdin(paths ...string) error {
	if countStdio(paths) > 1 {
		return txerrors.NewKindError(txerrors.KindInvalidInput, "only one input may be read from stdin", nil)
	}
	return nil
}

func checkSingleStdout(paths ...string) error {
	if countStdio(paths) > 1 {
		return txerrors.NewKindError(txerrors.KindInvalidInput, "only one output may be written to stdout", nil)
	}
	return nil
}

func countStdio(paths []string) int {
	n := 0
	for _, p := range paths {
		if p == source.StdioName {
			n++
		}
	}
	return n
}

// historyUsage describes the --history flag with the suffixes OpenFile decompresses.
func historyUsage() string {
	return "Transmission history file (" + strings.Join(source.Suffixes(), ", ") + " decompressed), or - for stdin"
}

// =============================================================================
// Diagnostics
// =============================================================================

// settle applies the kind behavior table to a diagnostic error. Fatal kinds are
// returned; reportable ones are logged at warn level and dropped.
func settle(err error, msg string, attrs ...any) error {
	if err == nil {
		return nil
	}
	if txerrors.IsFatal(err) {
		return err
	}
	if txerrors.GetBehavior(err).ShouldReport {
		logger.Warn(msg, append(attrs, slog.Any("error", err))...)
	}
	return nil
}
