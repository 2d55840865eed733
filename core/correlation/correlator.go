// Package correlation scores a user ranking of infectors against the ranking
// implied by their onward-transmission counts, using Kendall's tau-b.
package correlation

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	txerrors "github.com/adalundhe/txrank/core/errors"
	"github.com/adalundhe/txrank/core/source"
)

// =============================================================================
// Result
// =============================================================================

// Method names how a Result's p-value was obtained.
type Method string

const (
	MethodExact      Method = "exact"
	MethodAsymptotic Method = "asymptotic"
	MethodUndefined  Method = "undefined"
)

// Result is a tau-b statistic with its two-sided p-value.
type Result struct {
	Tau    float64
	PValue float64
	N      int
	Method Method
	Reason string
}

// UndefinedResult is the sentinel for inputs where tau-b has no value.
// Tau and PValue are NaN.
func UndefinedResult(n int, reason string) Result {
	return Result{Tau: math.NaN(), PValue: math.NaN(), N: n, Method: MethodUndefined, Reason: reason}
}

// Undefined reports whether r is the degenerate sentinel.
func (r Result) Undefined() bool {
	return r.Method == MethodUndefined
}

// Err returns a non-fatal Degenerate error for undefined results, nil otherwise.
func (r Result) Err() error {
	if !r.Undefined() {
		return nil
	}
	return txerrors.NewKindError(txerrors.KindDegenerate, "tau-b is undefined: "+r.Reason, nil).
		WithContext("n", strconv.Itoa(r.N))
}

// Line renders r as "tau\tp-value" with full float precision. Undefined values
// render as NaN.
func (r Result) Line() string {
	return formatFloat(r.Tau) + "\t" + formatFloat(r.PValue)
}

// LegacyLine renders r in the old integer format, truncating both values to
// integers. Kept only for comparing against old output files.
func (r Result) LegacyLine() string {
	if r.Undefined() {
		return r.Line()
	}
	return fmt.Sprintf("%d\t%d", int64(r.Tau), int64(r.PValue))
}

type resultJSON struct {
	Tau    *float64 `json:"tau"`
	PValue *float64 `json:"p_value"`
	N      int      `json:"n"`
	Method Method   `json:"method"`
	Reason string   `json:"reason,omitempty"`
}

// MarshalJSON encodes undefined statistics as null.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{N: r.N, Method: r.Method, Reason: r.Reason}
	if !math.IsNaN(r.Tau) {
		out.Tau = &r.Tau
	}
	if !math.IsNaN(r.PValue) {
		out.PValue = &r.PValue
	}
	return json.Marshal(out)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// =============================================================================
// TauBComputer
// =============================================================================

// TauBComputer computes tau-b and its two-sided p-value for two equal-length
// sequences. Implementations must return the undefined Result, not an error, for
// degenerate input.
type TauBComputer interface {
	TauB(x, y []float64) (Result, error)
}

// =============================================================================
// Correlator
// =============================================================================

// Correlator compares the order of a count file with its count-sorted order.
type Correlator struct {
	computer TauBComputer
	logger   *slog.Logger
}

// NewCorrelator creates a Correlator. A nil computer uses KendallTauB and a nil
// logger falls back to slog.Default().
func NewCorrelator(computer TauBComputer, logger *slog.Logger) *Correlator {
	if computer == nil {
		computer = KendallTauB{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{computer: computer, logger: logger}
}

// Compare computes tau-b between the optimal order (userOrder sorted ascending,
// or descending when reverse) and userOrder, passing the optimal order first.
// An undefined result is returned without error; Result.Err classifies it.
func (c *Correlator) Compare(userOrder []int, reverse bool) (Result, error) {
	optimal := OptimalOrder(userOrder, reverse)

	c.logger.Debug("comparing orders",
		slog.Any("user_order", userOrder),
		slog.Any("optimal_order", optimal),
		slog.Bool("reverse", reverse))

	res, err := c.computer.TauB(toFloats(optimal), toFloats(userOrder))
	if err != nil {
		return Result{}, err
	}
	if res.Undefined() {
		c.logger.Debug("tau-b is undefined",
			slog.Int("n", res.N),
			slog.String("reason", res.Reason))
	}
	return res, nil
}

// CalculateTauB reads "identity\tcount" lines from src, compares their order with
// the count-sorted order and writes "tau\tp-value" to sink.
func (c *Correlator) CalculateTauB(src source.LineSource, sink io.Writer, reverse bool) (Result, error) {
	userOrder, err := ReadCounts(src)
	if err != nil {
		return Result{}, err
	}

	res, err := c.Compare(userOrder, reverse)
	if err != nil {
		return Result{}, err
	}

	if _, err := io.WriteString(sink, res.Line()+"\n"); err != nil {
		return Result{}, txerrors.WrapWithKind(txerrors.KindIO, "write tau-b result", err)
	}
	return res, nil
}

// CalculateTauB runs a default Correlator over src.
func CalculateTauB(src source.LineSource, sink io.Writer, reverse bool) (Result, error) {
	return NewCorrelator(nil, nil).CalculateTauB(src, sink, reverse)
}

// =============================================================================
// Helpers
// =============================================================================

// ReadCounts parses the count column of "identity\tcount" lines in file order.
// Blank lines are skipped; anything else that does not parse is a malformed record.
func ReadCounts(src source.LineSource) ([]int, error) {
	var counts []int
	err := src.Scan(func(lineNo int, line string) error {
		if line == "" {
			return nil
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return txerrors.Malformed(src.Name(), lineNo, line,
				fmt.Sprintf("expected 2 tab-separated fields, got %d", len(fields)))
		}
		n, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || n < 0 {
			return txerrors.Malformed(src.Name(), lineNo, line,
				fmt.Sprintf("count %q is not a non-negative integer", fields[1]))
		}
		counts = append(counts, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// OptimalOrder returns a sorted copy of counts, descending when reverse.
func OptimalOrder(counts []int, reverse bool) []int {
	out := make([]int, len(counts))
	copy(out, counts)
	if reverse {
		sort.Sort(sort.Reverse(sort.IntSlice(out)))
	} else {
		sort.Ints(out)
	}
	return out
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, n := range v {
		out[i] = float64(n)
	}
	return out
}
