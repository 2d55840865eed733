package transmission

import (
	"fmt"
	"log/slog"
	"math"

	txerrors "github.com/adalundhe/txrank/core/errors"
	"github.com/adalundhe/txrank/core/source"
)

// =============================================================================
// Window
// =============================================================================

// Window is the closed time interval [Lower, Upper] a transmission must fall in.
type Window struct {
	Lower float64
	Upper float64
}

// Unbounded returns a window that admits every finite time.
func Unbounded() Window {
	return Window{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Contains reports whether t lies in the window, bounds included.
func (w Window) Contains(t float64) bool {
	return t >= w.Lower && t <= w.Upper
}

// Validate rejects NaN bounds and inverted windows.
func (w Window) Validate() error {
	if math.IsNaN(w.Lower) || math.IsNaN(w.Upper) {
		return txerrors.NewKindError(txerrors.KindInvalidInput, "window bound is NaN", nil)
	}
	if w.Lower > w.Upper {
		return txerrors.NewKindError(txerrors.KindInvalidInput,
			fmt.Sprintf("lower bound %g is above upper bound %g", w.Lower, w.Upper), nil)
	}
	return nil
}

// =============================================================================
// Counter
// =============================================================================

// CountStats summarizes a counting pass.
type CountStats struct {
	Records       int
	OutsideWindow int
	SeedCases     int
	NoInfectee    int
	Counted       int
	Infectors     int
}

// Counter counts onward transmissions per infector.
type Counter struct {
	logger *slog.Logger
}

// NewCounter creates a Counter. A nil logger falls back to slog.Default().
func NewCounter(logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{logger: logger}
}

// Count reads every record of src and counts, per infector, the records whose time
// is inside w and that name both an infector and an infectee. Empty lines are ignored.
// The first malformed line aborts the pass; no partial map is returned.
func (c *Counter) Count(src source.LineSource, w Window) (*CountMap, CountStats, error) {
	var stats CountStats
	if err := w.Validate(); err != nil {
		return nil, stats, err
	}

	counts := NewCountMap()
	err := src.Scan(func(lineNo int, line string) error {
		if line == "" {
			return nil
		}
		rec, err := ParseRecord(src.Name(), lineNo, line)
		if err != nil {
			return err
		}
		stats.Records++

		switch {
		case !w.Contains(rec.Time):
			stats.OutsideWindow++
		case rec.IsSeed():
			stats.SeedCases++
		case !rec.HasInfectee():
			stats.NoInfectee++
		default:
			counts.Increment(rec.Infector)
			stats.Counted++
		}
		return nil
	})
	if err != nil {
		return nil, CountStats{}, err
	}

	stats.Infectors = counts.Len()
	c.logger.Debug("counted transmissions",
		slog.String("source", src.Name()),
		slog.Float64("lower", w.Lower),
		slog.Float64("upper", w.Upper),
		slog.Int("records", stats.Records),
		slog.Int("outside_window", stats.OutsideWindow),
		slog.Int("seed_cases", stats.SeedCases),
		slog.Int("no_infectee", stats.NoInfectee),
		slog.Int("counted", stats.Counted),
		slog.Int("infectors", stats.Infectors))

	return counts, stats, nil
}

// CountInfections counts onward transmissions per infector in src within w.
func CountInfections(src source.LineSource, w Window) (*CountMap, error) {
	counts, _, err := NewCounter(nil).Count(src, w)
	return counts, err
}
