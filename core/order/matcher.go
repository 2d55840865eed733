// Package order lines infector counts up with an externally chosen ranking of
// individuals.
package order

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	txerrors "github.com/adalundhe/txrank/core/errors"
	"github.com/adalundhe/txrank/core/source"
)

// Counts is the read side of a count mapping.
type Counts interface {
	Get(id string) (int, bool)
}

// OrderedCount is one identity of the ranking with its count.
type OrderedCount struct {
	Identity string
	Count    int
}

// MatchReport describes a matching pass.
type MatchReport struct {
	Matched   []OrderedCount
	Unmatched []string
}

// MatchInfectorCounts walks ordering and, for every identity present in counts,
// writes "identity\tcount" to sink in the ordering's order. Identities without a
// count are reported on logger and skipped. Blank lines are ignored.
//
// Read errors on ordering and write errors on sink abort the pass.
func MatchInfectorCounts(counts Counts, ordering source.LineSource, sink io.Writer, logger *slog.Logger) (MatchReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var report MatchReport
	w := bufio.NewWriter(sink)

	err := ordering.Scan(func(lineNo int, id string) error {
		if id == "" {
			return nil
		}
		n, ok := counts.Get(id)
		if !ok {
			report.Unmatched = append(report.Unmatched, id)
			logger.Warn("individual is not in the transmission histories",
				slog.String("identity", id),
				slog.String("ordering", ordering.Name()),
				slog.Int("line", lineNo))
			return nil
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\n", id, n); err != nil {
			return txerrors.WrapWithKind(txerrors.KindIO, "write matched count", err)
		}
		report.Matched = append(report.Matched, OrderedCount{Identity: id, Count: n})
		return nil
	})
	if err != nil {
		return MatchReport{}, err
	}
	if err := w.Flush(); err != nil {
		return MatchReport{}, txerrors.WrapWithKind(txerrors.KindIO, "flush matched counts", err)
	}

	logger.Debug("matched ordering against counts",
		slog.String("ordering", ordering.Name()),
		slog.Int("matched", len(report.Matched)),
		slog.Int("unmatched", len(report.Unmatched)))
	return report, nil
}

// UnmatchedError summarizes the unmatched identities of a report as a non-fatal
// error, or nil when every identity matched.
func (r MatchReport) UnmatchedError() error {
	if len(r.Unmatched) == 0 {
		return nil
	}
	return txerrors.NewKindError(txerrors.KindUnknownIdentity,
		fmt.Sprintf("%d individual(s) not in the transmission histories", len(r.Unmatched)), nil).
		WithContext("first", r.Unmatched[0])
}
